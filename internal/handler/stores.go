// Package handler implements the HTTP endpoints. Handlers depend on small
// store interfaces rather than concrete repositories so the request logic
// can be exercised against in-memory fakes; the MySQL repositories satisfy
// these interfaces in production wiring.
package handler

import (
	"context"
	"time"

	"github.com/iliyamo/secure-notes/internal/model"
	"github.com/iliyamo/secure-notes/internal/queue"
)

// UserStore is the credential-store surface the handlers need.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, afterID uint64, limit int) ([]model.User, error)
	UpdateStatus(ctx context.Context, id uint64, status model.Status) error
	UpdateRole(ctx context.Context, id uint64, role model.Role) error
}

// SessionStore persists refresh sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) (uint64, error)
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	Rotate(ctx context.Context, oldHash string, userID uint64, newHash string, newExp time.Time) (uint64, error)
	Touch(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// VerificationStore persists single-use email-verification tokens.
type VerificationStore interface {
	Issue(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, tokenHash string) (uint64, error)
}

// NoteStore persists notes.
type NoteStore interface {
	Create(ctx context.Context, userID uint64, title, content string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Note, error)
	Update(ctx context.Context, id uint64, title, content string) error
	SoftDelete(ctx context.Context, id uint64) error
	ListByOwner(ctx context.Context, userID, afterID uint64, limit int) ([]model.Note, error)
	ListAll(ctx context.Context, userID, afterID uint64, limit int) ([]model.Note, error)
}

// AuditStore reads the audit log for the admin view. Writes go through
// the audit.Recorder, not this interface.
type AuditStore interface {
	List(ctx context.Context, afterID uint64, limit int) ([]model.AuditEntry, error)
}

// EventPublisher publishes post-commit mail dispatch events.
type EventPublisher interface {
	PublishVerificationRequested(ctx context.Context, event queue.VerificationRequestedEvent) error
}
