package model

import "time"

// EmailVerificationToken models an entry in the `email_verification_tokens`
// table. A token is single-use: consuming it sets UsedAt exactly once, and
// issuing a new token for a user supersedes (expires) any unused ones so a
// stale link cannot verify an account later.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the raw token sent by email.
//  ExpiresAt – expiration timestamp of the token.
//  UsedAt    – when the token was consumed (null if unused).
//  CreatedAt – timestamp of creation.
type EmailVerificationToken struct {
	ID        uint64     // email_verification_tokens.id
	UserID    uint64     // email_verification_tokens.user_id
	TokenHash string     // email_verification_tokens.token_hash
	ExpiresAt time.Time  // email_verification_tokens.expires_at
	UsedAt    *time.Time // email_verification_tokens.used_at (nullable)
	CreatedAt time.Time  // email_verification_tokens.created_at
}
