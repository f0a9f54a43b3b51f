// ABOUTME: Capability token signing and decoding for device authentication
// ABOUTME: Uses HS256 signing with a process-wide symmetric secret

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum length in bytes for the signing secret.
const MinSecretLength = 32

// Token errors
var (
	ErrSecretTooShort = errors.New("signing secret too short")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrMissingClaim   = errors.New("missing required claim")
)

// Claim names carried by a device token. "device" is the caller-supplied
// device name; "rand" is the per-registration secret that binds the token
// to a specific stored record.
const (
	claimDevice = "device"
	claimRand   = "rand"
)

// TokenCodec signs and decodes device capability tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec for the given signing secret.
func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretTooShort, MinSecretLength, len(secret))
	}
	return &TokenCodec{secret: secret, now: time.Now}, nil
}

// Issue creates a signed token binding the device name to its registration
// secret, expiring after ttl.
func (c *TokenCodec) Issue(deviceName, authSecret string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		claimDevice: deviceName,
		claimRand:   authSecret,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode validates the token signature and expiry and extracts the device
// name and registration secret. It performs no store or cache lookups.
func (c *TokenCodec) Decode(tokenString string) (deviceName, authSecret string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}

	deviceName, ok = claims[claimDevice].(string)
	if !ok || deviceName == "" {
		return "", "", fmt.Errorf("%w: %s", ErrMissingClaim, claimDevice)
	}

	authSecret, ok = claims[claimRand].(string)
	if !ok || authSecret == "" {
		return "", "", fmt.Errorf("%w: %s", ErrMissingClaim, claimRand)
	}

	return deviceName, authSecret, nil
}
