package model

import "time"

// RefreshSession models an entry in the `refresh_sessions` table. Each
// session belongs to a user and tracks one issued refresh credential. The
// raw token is never stored; only its SHA-256 hash. Sessions are revoked,
// never deleted, so the table doubles as an audit trail of issued
// credentials.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the session.
//  TokenHash  – SHA-256 hex digest of the raw refresh token.
//  ExpiresAt  – expiration timestamp of the session.
//  RevokedAt  – when the session was revoked (null if still active).
//  CreatedAt  – timestamp of creation.
//  LastUsedAt – when the session last minted an access token (nullable).
type RefreshSession struct {
	ID         uint64     // refresh_sessions.id
	UserID     uint64     // refresh_sessions.user_id
	TokenHash  string     // refresh_sessions.token_hash
	ExpiresAt  time.Time  // refresh_sessions.expires_at
	RevokedAt  *time.Time // refresh_sessions.revoked_at (nullable)
	CreatedAt  time.Time  // refresh_sessions.created_at
	LastUsedAt *time.Time // refresh_sessions.last_used_at (nullable)
}

// Active reports whether the session may still be consulted: not revoked
// and not expired at the given instant.
func (s RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
