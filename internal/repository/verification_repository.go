package repository

import (
	"context"
	"database/sql"
	"time"
)

// VerificationRepo persists single-use email-verification tokens.
type VerificationRepo struct{ db *sql.DB }

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{db: db} }

// Issue stores a new verification token for a user and supersedes any
// prior unused tokens in the same transaction, so only the most recently
// mailed link can verify the account.
func (r *VerificationRepo) Issue(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Supersession: expire unused tokens instead of deleting them, keeping
	// the issuance history intact.
	_, err = tx.ExecContext(ctx,
		"UPDATE email_verification_tokens SET expires_at=UTC_TIMESTAMP() WHERE user_id=? AND used_at IS NULL AND expires_at>UTC_TIMESTAMP()",
		userID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO email_verification_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Consume atomically marks the token used and flips the owning user to
// VERIFIED, returning the user id. The guarded UPDATE on used_at admits
// exactly one winner under concurrent calls; the loser gets
// ErrVerificationUsed. Expired and unknown tokens are classified after the
// fact so the caller can answer with the precise failure.
func (r *VerificationRepo) Consume(ctx context.Context, tokenHash string) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE email_verification_tokens SET used_at=UTC_TIMESTAMP()
		 WHERE token_hash=? AND used_at IS NULL AND expires_at>UTC_TIMESTAMP()`,
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
	err = tx.QueryRowContext(ctx,
		"SELECT user_id FROM email_verification_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}

	// Flip the user in the same transaction: either both the token mark
	// and the status change commit, or neither does.
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET status='VERIFIED', email_verified_at=UTC_TIMESTAMP(), updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND status='PENDING_VERIFICATION'`,
		userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

// classify explains why the consume update matched nothing.
func (r *VerificationRepo) classify(ctx context.Context, tokenHash string) error {
	var (
		used    sql.NullTime
		expires time.Time
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT used_at, expires_at FROM email_verification_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&used, &expires)
	if err == sql.ErrNoRows {
		return ErrVerificationNotFound
	}
	if err != nil {
		return err
	}
	if used.Valid {
		return ErrVerificationUsed
	}
	return ErrVerificationExpired
}
