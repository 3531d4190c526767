package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/secure-notes/internal/model"
)

// SessionRepo persists refresh sessions. Rows are revoked, never deleted,
// so the table keeps a full history of issued refresh credentials.
type SessionRepo struct{ db *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = "id,user_id,token_hash,expires_at,revoked_at,created_at,last_used_at"

// Create inserts a refresh session row and returns its id.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByHash fetches a session by token hash regardless of state. Callers
// that need to distinguish expired/revoked from missing use this after a
// guarded update reports zero rows.
func (r *SessionRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM refresh_sessions WHERE token_hash=? LIMIT 1", tokenHash))
}

// Rotate atomically revokes the session identified by oldHash and inserts
// its successor. The guarded UPDATE admits exactly one winner under
// concurrent calls with the same token: losers see zero affected rows and
// get the classified error (REVOKED for a lost race or replay, EXPIRED,
// or NOT_FOUND). The transaction guarantees a session is never left
// revoked without its successor persisted.
func (r *SessionRepo) Rotate(ctx context.Context, oldHash string, userID uint64, newHash string, newExp time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_sessions
		 SET revoked_at=UTC_TIMESTAMP(), last_used_at=UTC_TIMESTAMP()
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at>UTC_TIMESTAMP()`,
		oldHash)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, r.classify(ctx, oldHash)
	}

	ins, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, newExp)
	if err != nil {
		return 0, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Touch validates a session without rotating it and stamps last_used_at.
// Used when rotation is disabled. Same one-winner guard as Rotate, except
// every valid presentation wins.
func (r *SessionRepo) Touch(ctx context.Context, tokenHash string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET last_used_at=UTC_TIMESTAMP()
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at>UTC_TIMESTAMP()`,
		tokenHash)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, r.classify(ctx, tokenHash)
	}
	var userID uint64
	err = r.db.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash marks a session as revoked. Revoking an already-revoked
// session is a no-op success so logout stays idempotent.
func (r *SessionRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all of a user's active sessions. Used by
// logout-everywhere, admin disable, and replay escalation.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// classify explains why a guarded update matched nothing.
func (r *SessionRepo) classify(ctx context.Context, tokenHash string) error {
	s, err := r.GetByHash(ctx, tokenHash)
	if err != nil {
		return err
	}
	if s.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if !time.Now().UTC().Before(s.ExpiresAt) {
		return ErrSessionExpired
	}
	// Row reappeared valid between the update and this read; report it as
	// a lost race.
	return ErrSessionRevoked
}

func scanSession(row *sql.Row) (model.RefreshSession, error) {
	var (
		s        model.RefreshSession
		revoked  sql.NullTime
		lastUsed sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &revoked, &s.CreatedAt, &lastUsed)
	if err == sql.ErrNoRows {
		return model.RefreshSession{}, ErrSessionNotFound
	}
	if err != nil {
		return model.RefreshSession{}, fmt.Errorf("scan refresh session: %w", err)
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		s.LastUsedAt = &t
	}
	return s, nil
}
