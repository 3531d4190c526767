package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/secure-notes/internal/mail"
)

// maxSendAttempts bounds per-message delivery retries for transient mail
// failures before the message is dropped.
const maxSendAttempts = 3

// StartVerificationConsumer connects to RabbitMQ, declares the
// verification queue (durable) and dispatches each event through the mail
// sender. It runs a reconnect loop with exponential backoff and returns
// only when ctx is cancelled; processing errors are logged and the
// offending message rejected so the worker keeps running.
func StartVerificationConsumer(ctx context.Context, sender mail.Sender, log zerolog.Logger) {
	url := NewPublisher(log).url

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("mail-consumer: dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, sender, log); err != nil {
			log.Warn().Err(err).Msg("mail-consumer: consume loop ended, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sender mail.Sender, log zerolog.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(VerificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(VerificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := DispatchVerification(ctx, sender, d.Body); err != nil {
				log.Error().Err(err).Msg("mail-consumer: dispatch failed")
				_ = d.Nack(false, false) // drop, do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// DispatchVerification decodes one event and delivers the verification
// mail, retrying transient failures with linear backoff up to
// maxSendAttempts. Permanent failures and decode errors are returned
// immediately.
func DispatchVerification(ctx context.Context, sender mail.Sender, body []byte) error {
	var ev VerificationRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	payload := mail.Payload{
		"token":      ev.RawToken,
		"expires_at": ev.ExpiresAt,
	}

	var err error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = sender.Send(sctx, ev.Email, mail.TemplateVerifyEmail, payload)
		cancel()
		if err == nil || !errors.Is(err, mail.ErrTransient) || attempt == maxSendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return fmt.Errorf("send to %s: %w", ev.Email, err)
	}
	return nil
}
