package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/secure-notes/internal/model"
)

// AuditRepo appends to the immutable 'audit_log' table. There are no
// update or delete methods; the table only grows.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert appends one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_log (actor_id, action, target_id, outcome) VALUES (?,?,?,?)",
		e.ActorID, e.Action, e.TargetID, e.Outcome)
	return err
}

// List returns up to limit entries with id greater than afterID, ordered
// by id, for the admin audit view.
func (r *AuditRepo) List(ctx context.Context, afterID uint64, limit int) ([]model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, actor_id, action, target_id, outcome, created_at FROM audit_log WHERE id>? ORDER BY id ASC LIMIT ?",
		afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
