package model

import "time"

// Role enumerates the closed set of user roles. Authorization is evaluated
// as a pure table over (role, action, ownership), so a new role must be
// added both here and in the authz policy.
type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleGuest      Role = "guest"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleClient, RoleAdmin, RoleSuperAdmin, RoleGuest:
		return true
	}
	return false
}

// Status enumerates a user's authentication lifecycle state:
// PENDING_VERIFICATION -> VERIFIED -> (DISABLED). DISABLED blocks all
// authentication.
type Status string

const (
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusVerified            Status = "VERIFIED"
	StatusDisabled            Status = "DISABLED"
)

// User represents a row in the `users` table. Emails are case-normalized
// before storage and unique. Users are never physically deleted; disabling
// sets Status to DISABLED and revokes all refresh sessions.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Email           – unique, lower-cased email address.
//  PasswordHash    – bcrypt hashed password.
//  Role            – one of client, admin, super_admin, guest.
//  Status          – PENDING_VERIFICATION, VERIFIED or DISABLED.
//  EmailVerifiedAt – when the email was verified (null until verified).
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64     // users.id
	Email           string     // users.email
	PasswordHash    string     // users.password_hash
	Role            Role       // users.role
	Status          Status     // users.status
	EmailVerifiedAt *time.Time // users.email_verified_at (nullable)
	CreatedAt       time.Time  // users.created_at
	UpdatedAt       time.Time  // users.updated_at
}
