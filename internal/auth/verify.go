// ABOUTME: Token verification against the published credential snapshot
// ABOUTME: Signature and expiry first, then an I/O-free cache cross-reference

package auth

import (
	"errors"
	"log/slog"
)

// Verification errors beyond the token codec's own. These distinctions exist
// for logging; transports must collapse every verification failure into one
// opaque unauthorized response.
var (
	ErrNotEnabled     = errors.New("device not enabled")
	ErrSecretMismatch = errors.New("token secret does not match enabled device")
)

// Verifier validates presented tokens against the current credential
// snapshot. Verification never blocks on store or network I/O; staleness is
// bounded by the refresh interval or a forced refresh after admin actions.
type Verifier struct {
	codec  *TokenCodec
	cache  *Cache
	logger *slog.Logger
}

// NewVerifier creates a verifier over the given codec and cache.
func NewVerifier(codec *TokenCodec, cache *Cache) *Verifier {
	return &Verifier{
		codec:  codec,
		cache:  cache,
		logger: slog.Default().With("component", "verifier"),
	}
}

// Verify checks the token signature and expiry, then cross-references the
// embedded secret against the snapshot of enabled devices. The snapshot read
// is a single atomic load; no lock is held while matching.
//
// A cache miss covers every disabled state the same way: the device never
// existed, is still pending, or was rejected.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	deviceName, authSecret, err := v.codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	entry, ok := v.cache.Lookup(authSecret)
	if !ok {
		return nil, ErrNotEnabled
	}

	// The stored record and the token must agree on the device name; a
	// matching secret with a different name means the token was tampered
	// with or the record was re-issued.
	if entry.DeviceName != deviceName {
		return nil, ErrSecretMismatch
	}

	return &Principal{
		DeviceName: entry.DeviceName,
		IsAdmin:    entry.IsAdmin,
	}, nil
}
