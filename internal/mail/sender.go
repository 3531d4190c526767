// Package mail defines the outbound mail contract. Delivery transport
// (SMTP, an ESP API) lives outside this service; the queue consumer calls
// Sender for each dispatch event and retries transient failures.
package mail

import (
	"context"
	"errors"
)

// Template ids known to the mail transport.
const (
	TemplateVerifyEmail = "verify_email"
)

// Failure classes. Transient failures are retried with backoff by the
// dispatch worker; permanent ones are dropped after logging.
var (
	ErrTransient = errors.New("transient mail failure")
	ErrPermanent = errors.New("permanent mail failure")
)

// Payload carries template variables for one message.
type Payload map[string]string

// Sender delivers one templated message. Implementations must respect the
// context deadline set by the dispatch worker.
type Sender interface {
	Send(ctx context.Context, address, templateID string, payload Payload) error
}
