package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/secure-notes/internal/model"
)

// UserRepo persists rows of the 'users' table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id,email,password_hash,role,status,email_verified_at,created_at,updated_at"

// Create inserts a user in PENDING_VERIFICATION state and returns its ID.
// The caller supplies an already-bcrypt-hashed password. Emails are
// lower-cased here so the unique index always sees the normalized form.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, status) VALUES (?,?,?,?)",
		email, passwordHash, string(role), string(model.StatusPendingVerification))
	if err != nil {
		// MySQL error 1062: duplicate entry on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns up to limit users with id greater than afterID, ordered by
// id. The ordering key is the cursor key, so pages are disjoint.
func (r *UserRepo) List(ctx context.Context, afterID uint64, limit int) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id>? ORDER BY id ASC LIMIT ?",
		afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateStatus sets a user's lifecycle status. Role transitions are not
// handled here; see UpdateRole.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status model.Status) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		string(status), id)
	if err != nil {
		return err
	}
	return mustAffectUser(res)
}

// UpdateRole changes a user's role. Only the super_admin elevation path
// reaches this method; authorization happens before the repository.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET role=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		string(role), id)
	if err != nil {
		return err
	}
	return mustAffectUser(res)
}

func mustAffectUser(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		role     string
		status   string
		verified sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &status, &verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.Status = model.Status(status)
	if verified.Valid {
		t := verified.Time
		u.EmailVerifiedAt = &t
	}
	return u, nil
}
