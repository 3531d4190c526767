// Package queue defines message payloads exchanged over the message
// broker and the background consumer that dispatches them as email.
package queue

// VerificationQueueName is the durable queue carrying verification-mail
// dispatch events.
const VerificationQueueName = "auth.email.verification"

// VerificationRequestedEvent is published after a signup or a resend
// commits. It carries everything the mail worker needs so dispatch never
// re-queries the primary database. The raw token appears here because the
// email link is the only place it may exist in plaintext; the broker is
// inside the trust boundary.
type VerificationRequestedEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	RawToken    string `json:"raw_token"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}
