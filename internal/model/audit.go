package model

import "time"

// Audit outcomes. Denied attempts on admin-scope endpoints are recorded
// alongside allowed ones so the trail shows who asked, not only who
// succeeded.
const (
	AuditOutcomeAllowed = "ALLOWED"
	AuditOutcomeDenied  = "DENIED"
)

// AuditEntry models a row in the append-only `audit_log` table.
//
// Fields:
//  ID        – primary key identifier.
//  ActorID   – user performing the action.
//  Action    – authz action name (e.g. "admin.users.disable").
//  TargetID  – id of the affected user or note (0 for list actions).
//  Outcome   – ALLOWED or DENIED.
//  CreatedAt – timestamp of the event.
type AuditEntry struct {
	ID        uint64    // audit_log.id
	ActorID   uint64    // audit_log.actor_id
	Action    string    // audit_log.action
	TargetID  uint64    // audit_log.target_id
	Outcome   string    // audit_log.outcome
	CreatedAt time.Time // audit_log.created_at
}
