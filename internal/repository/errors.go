// Package repository contains the MySQL data access layer. Sentinel errors
// defined here let handlers distinguish failure scenarios without parsing
// driver errors: for example ErrSessionRevoked signals a losing refresh
// call (or a replayed token), while ErrEmailExists maps onto a CONFLICT
// response.
package repository

import "errors"

// ErrEmailExists is returned when an insert violates the unique email
// constraint. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user row matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrNoteNotFound is returned when no live (non-deleted) note matches.
var ErrNoteNotFound = errors.New("note not found")

// Refresh session failures. A revoked session presented again is the
// replay signal from the rotation design.
var (
	ErrSessionNotFound = errors.New("refresh session not found")
	ErrSessionExpired  = errors.New("refresh session expired")
	ErrSessionRevoked  = errors.New("refresh session revoked")
)

// Email verification failures. A token may be consumed exactly once;
// re-consumption after success fails with ErrVerificationUsed rather than
// reporting a silent success.
var (
	ErrVerificationNotFound = errors.New("verification token not found")
	ErrVerificationExpired  = errors.New("verification token expired")
	ErrVerificationUsed     = errors.New("verification token already used")
)
