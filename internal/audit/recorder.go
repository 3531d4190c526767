// Package audit records privileged actions to the append-only audit log.
// Writes are best-effort: an unavailable sink is logged and the enclosing
// request proceeds, so auditing can never take the API down with it.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/model"
)

// Store is the persistence surface the recorder needs.
type Store interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// Recorder appends audit entries with a bounded timeout.
type Recorder struct {
	store Store
	log   zerolog.Logger
}

func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record appends one entry. The write is capped at two seconds and
// detached from the caller's cancellation so a client disconnect cannot
// drop an audit row mid-request. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, actorID uint64, action string, targetID uint64, outcome string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	e := model.AuditEntry{ActorID: actorID, Action: action, TargetID: targetID, Outcome: outcome}
	if err := r.store.Insert(dctx, e); err != nil {
		r.log.Error().Err(err).
			Uint64("actor_id", actorID).
			Str("action", action).
			Uint64("target_id", targetID).
			Str("outcome", outcome).
			Msg("audit write failed")
	}
}
