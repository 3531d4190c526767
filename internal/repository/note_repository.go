package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/secure-notes/internal/model"
)

// NoteRepo persists rows of the 'notes' table. Deletes are soft: rows gain
// a deleted_at timestamp and drop out of every query here.
type NoteRepo struct{ db *sql.DB }

func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

const noteColumns = "id,created_by,title,content,created_at,updated_at,deleted_at"

// Create inserts a note owned by userID and returns its id.
func (r *NoteRepo) Create(ctx context.Context, userID uint64, title, content string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (created_by, title, content) VALUES (?,?,?)",
		userID, title, content)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a live note. Soft-deleted notes report ErrNoteNotFound;
// ownership is enforced by the caller against the returned CreatedBy.
func (r *NoteRepo) GetByID(ctx context.Context, id uint64) (model.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNoteNotFound
	}
	return n, err
}

// Update rewrites title and content of a live note.
func (r *NoteRepo) Update(ctx context.Context, id uint64, title, content string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notes SET title=?, content=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL",
		title, content, id)
	if err != nil {
		return err
	}
	return mustAffectNote(res)
}

// SoftDelete marks a note deleted. Deleting an already-deleted note
// reports ErrNoteNotFound, matching GetByID.
func (r *NoteRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notes SET deleted_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL", id)
	if err != nil {
		return err
	}
	return mustAffectNote(res)
}

// ListByOwner returns up to limit live notes created by userID with id
// greater than afterID, ordered by id.
func (r *NoteRepo) ListByOwner(ctx context.Context, userID, afterID uint64, limit int) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE created_by=? AND id>? AND deleted_at IS NULL ORDER BY id ASC LIMIT ?",
		userID, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

// ListAll returns live notes across all users for the admin listing. A
// non-zero userID narrows the result to one owner.
func (r *NoteRepo) ListAll(ctx context.Context, userID, afterID uint64, limit int) ([]model.Note, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID != 0 {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+noteColumns+" FROM notes WHERE created_by=? AND id>? AND deleted_at IS NULL ORDER BY id ASC LIMIT ?",
			userID, afterID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+noteColumns+" FROM notes WHERE id>? AND deleted_at IS NULL ORDER BY id ASC LIMIT ?",
			afterID, limit)
	}
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

func mustAffectNote(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func collectNotes(rows *sql.Rows) ([]model.Note, error) {
	defer rows.Close()
	var out []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNote(s rowScanner) (model.Note, error) {
	var (
		n       model.Note
		deleted sql.NullTime
	)
	err := s.Scan(&n.ID, &n.CreatedBy, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt, &deleted)
	if err != nil {
		return model.Note{}, err
	}
	if deleted.Valid {
		t := deleted.Time
		n.DeletedAt = &t
	}
	return n, nil
}
