package auth

import (
	"testing"
	"time"
)

func TestNewRefreshToken(t *testing.T) {
	tok, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(tok.Raw) != 96 {
		t.Errorf("raw length = %d, want 96", len(tok.Raw))
	}
	wantExp := time.Now().UTC().Add(30 * 24 * time.Hour)
	if d := tok.Exp.Sub(wantExp); d < -time.Minute || d > time.Minute {
		t.Errorf("expiry %v not near %v", tok.Exp, wantExp)
	}

	other, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if tok.Raw == other.Raw {
		t.Error("two refresh tokens share the same raw value")
	}
}

func TestNewVerificationToken(t *testing.T) {
	tok, err := NewVerificationToken(24)
	if err != nil {
		t.Fatalf("NewVerificationToken: %v", err)
	}
	if len(tok.Raw) != 64 {
		t.Errorf("raw length = %d, want 64", len(tok.Raw))
	}
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("abc")
	h2 := HashToken("abc")
	if h1 != h2 {
		t.Error("hash not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
	if h1 == HashToken("abd") {
		t.Error("distinct inputs share a hash")
	}
	if h1 == "abc" {
		t.Error("hash equals input")
	}
}
