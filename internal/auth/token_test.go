// ABOUTME: Tests for capability token signing and decoding
// ABOUTME: Covers roundtrip, expiry, wrong-key signatures, and claim validation

package auth

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-signing-secret-32-bytes!!!!")

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(testSecret)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return c
}

func TestNewTokenCodec_SecretTooShort(t *testing.T) {
	_, err := NewTokenCodec([]byte("short"))
	if !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("expected ErrSecretTooShort, got %v", err)
	}
}

func TestTokenCodec_Roundtrip(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Issue("doorbell", "rand-secret-1234", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	device, secret, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if device != "doorbell" {
		t.Errorf("device = %q, want %q", device, "doorbell")
	}
	if secret != "rand-secret-1234" {
		t.Errorf("secret = %q, want %q", secret, "rand-secret-1234")
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	c := newTestCodec(t)

	// Issue in the past by shifting the codec clock backwards
	c.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := c.Issue("doorbell", "rand-secret-1234", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	c.now = time.Now
	_, _, err = c.Decode(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenCodec_WrongKey(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewTokenCodec([]byte("another-signing-secret-32-bytes!"))
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	token, err := other.Issue("doorbell", "rand-secret-1234", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, _, err = c.Decode(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_Garbage(t *testing.T) {
	c := newTestCodec(t)

	_, _, err := c.Decode("not-a-jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_MissingClaims(t *testing.T) {
	c := newTestCodec(t)

	// A token minted without the rand claim must not decode
	token, err := c.Issue("doorbell", "", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, _, err = c.Decode(token)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("expected ErrMissingClaim, got %v", err)
	}
}

func TestTokenCodec_Deterministic(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Issue("doorbell", "rand-secret-1234", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Same token, same clock: identical outcomes
	for i := 0; i < 3; i++ {
		device, secret, err := c.Decode(token)
		if err != nil {
			t.Fatalf("Decode() attempt %d error = %v", i, err)
		}
		if device != "doorbell" || secret != "rand-secret-1234" {
			t.Errorf("attempt %d: got (%q, %q)", i, device, secret)
		}
	}
}
