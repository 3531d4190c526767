// Package authz evaluates whether an actor may perform an action on a
// target. The policy is a pure function over (role, action, ownership
// match) with no I/O; unknown actions or roles default to deny.
package authz

import "github.com/iliyamo/secure-notes/internal/model"

// Action names a guarded operation. The catalogue below is closed: an
// action not listed here is denied for every role.
type Action string

const (
	ActionNoteCreate Action = "notes.create"
	ActionNoteRead   Action = "notes.read"
	ActionNoteUpdate Action = "notes.update"
	ActionNoteDelete Action = "notes.delete"
	ActionNoteList   Action = "notes.list"

	ActionAdminUserList    Action = "admin.users.list"
	ActionAdminUserRead    Action = "admin.users.read"
	ActionAdminUserStatus  Action = "admin.users.status"
	ActionAdminUserElevate Action = "admin.users.elevate"
	ActionAdminNoteList    Action = "admin.notes.list"
	ActionAdminNoteRead    Action = "admin.notes.read"
	ActionAdminAuditRead   Action = "admin.audit.read"
)

// Actor is the authenticated principal extracted from an access token.
type Actor struct {
	ID   uint64
	Role model.Role
}

// Target identifies the resource an action applies to. OwnerID is the
// stored owner of the resource (zero for list/global actions); it must
// come from the repository, never from client input.
type Target struct {
	OwnerID uint64
}

// Authorize returns true when the actor's role permits the action on the
// target. Ownership-scoped roles (client, guest) only pass when the target
// owner equals the actor; anything without an explicit rule is denied.
func Authorize(actor Actor, action Action, target Target) bool {
	switch actor.Role {
	case model.RoleClient, model.RoleGuest:
		switch action {
		case ActionNoteCreate, ActionNoteList:
			return true
		case ActionNoteRead, ActionNoteUpdate, ActionNoteDelete:
			return actor.ID != 0 && actor.ID == target.OwnerID
		}
		return false
	case model.RoleAdmin:
		switch action {
		case ActionNoteCreate, ActionNoteList:
			return true
		case ActionNoteRead, ActionNoteUpdate, ActionNoteDelete:
			// Admin write access to notes is still ownership-scoped; only
			// reads cross user boundaries, via the admin endpoints.
			return actor.ID != 0 && actor.ID == target.OwnerID
		case ActionAdminUserList, ActionAdminUserRead, ActionAdminUserStatus,
			ActionAdminNoteList, ActionAdminNoteRead, ActionAdminAuditRead:
			return true
		}
		return false
	case model.RoleSuperAdmin:
		// Super admin is allowed on every catalogued action, including role
		// elevation, which admin is explicitly denied.
		switch action {
		case ActionNoteCreate, ActionNoteList,
			ActionNoteRead, ActionNoteUpdate, ActionNoteDelete,
			ActionAdminUserList, ActionAdminUserRead, ActionAdminUserStatus,
			ActionAdminUserElevate, ActionAdminNoteList, ActionAdminNoteRead,
			ActionAdminAuditRead:
			return true
		}
		return false
	}
	return false
}
