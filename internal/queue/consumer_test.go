package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/iliyamo/secure-notes/internal/mail"
)

type scriptedSender struct {
	errs  []error // one per attempt; nil means success
	calls int

	lastAddress  string
	lastTemplate string
	lastPayload  mail.Payload
}

func (s *scriptedSender) Send(_ context.Context, address, templateID string, payload mail.Payload) error {
	s.lastAddress = address
	s.lastTemplate = templateID
	s.lastPayload = payload
	i := s.calls
	s.calls++
	if i < len(s.errs) {
		return s.errs[i]
	}
	return nil
}

func eventBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(VerificationRequestedEvent{
		UserID:    7,
		Email:     "user@example.com",
		RawToken:  "raw-token",
		ExpiresAt: "2026-08-29T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func TestDispatchVerification(t *testing.T) {
	s := &scriptedSender{}
	if err := DispatchVerification(context.Background(), s, eventBody(t)); err != nil {
		t.Fatalf("DispatchVerification: %v", err)
	}
	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
	if s.lastAddress != "user@example.com" || s.lastTemplate != mail.TemplateVerifyEmail {
		t.Errorf("sent to %q with template %q", s.lastAddress, s.lastTemplate)
	}
	if s.lastPayload["token"] != "raw-token" {
		t.Errorf("payload token = %q", s.lastPayload["token"])
	}
}

func TestDispatchVerificationRetriesTransient(t *testing.T) {
	s := &scriptedSender{errs: []error{mail.ErrTransient, mail.ErrTransient, nil}}
	if err := DispatchVerification(context.Background(), s, eventBody(t)); err != nil {
		t.Fatalf("DispatchVerification: %v", err)
	}
	if s.calls != 3 {
		t.Errorf("calls = %d, want 3", s.calls)
	}
}

func TestDispatchVerificationGivesUpAfterMaxAttempts(t *testing.T) {
	s := &scriptedSender{errs: []error{mail.ErrTransient, mail.ErrTransient, mail.ErrTransient, nil}}
	err := DispatchVerification(context.Background(), s, eventBody(t))
	if !errors.Is(err, mail.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if s.calls != maxSendAttempts {
		t.Errorf("calls = %d, want %d", s.calls, maxSendAttempts)
	}
}

func TestDispatchVerificationPermanentFailureNotRetried(t *testing.T) {
	s := &scriptedSender{errs: []error{mail.ErrPermanent}}
	err := DispatchVerification(context.Background(), s, eventBody(t))
	if !errors.Is(err, mail.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
}

func TestDispatchVerificationRejectsGarbage(t *testing.T) {
	s := &scriptedSender{}
	if err := DispatchVerification(context.Background(), s, []byte("{not json")); err == nil {
		t.Fatal("garbage body accepted")
	}
	if s.calls != 0 {
		t.Errorf("sender called %d times for undecodable body", s.calls)
	}
}
