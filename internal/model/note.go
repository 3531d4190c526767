package model

import "time"

// Note represents a row in the `notes` table. Notes are owned exclusively
// by their creator; admins may read them through the admin endpoints but
// ownership checks always use CreatedBy from the stored row, never a
// client-supplied field. Deletion is soft: DeletedAt is set and the row
// stays in place.
//
// Fields:
//  ID        – primary key identifier.
//  CreatedBy – owning user id (FK to users.id).
//  Title     – short title of the note.
//  Content   – note body.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
//  DeletedAt – soft-delete marker (null if live).
type Note struct {
	ID        uint64     // notes.id
	CreatedBy uint64     // notes.created_by
	Title     string     // notes.title
	Content   string     // notes.content
	CreatedAt time.Time  // notes.created_at
	UpdatedAt time.Time  // notes.updated_at
	DeletedAt *time.Time // notes.deleted_at (nullable)
}
