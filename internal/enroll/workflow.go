// ABOUTME: Device enrollment workflow: register, admin enable, admin reject
// ABOUTME: PSK-gated transitions with a forced cache refresh after every state change

package enroll

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisTracy/gate-opener/internal/notify"
	"github.com/ChrisTracy/gate-opener/internal/store"
)

// Workflow errors
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingField      = errors.New("missing required field")
	ErrNotFound          = errors.New("unknown invite code")
)

// Secret lengths. The invite code needs collision resistance over the device
// count, not cryptographic strength; 30 uniform alphanumerics is far beyond
// both.
const (
	authSecretLength = 16
	inviteCodeLength = 30
)

// TokenIssuer mints capability tokens at registration time.
type TokenIssuer interface {
	Issue(deviceName, authSecret string, ttl time.Duration) (string, error)
}

// Refresher forces the credential cache to rebuild after a state change.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// Workflow drives the device lifecycle: register (pending), then admin
// enable or reject. All admin transitions are gated by the approval PSK, not
// by tokens.
type Workflow struct {
	store     store.DeviceStore
	issuer    TokenIssuer
	refresher Refresher
	notifier  notify.Notifier // nil when notification is unconfigured

	registrationPSK string
	approvalPSK     string
	tokenTTL        time.Duration

	logger *slog.Logger
}

// NewWorkflow creates the enrollment workflow. notifier may be nil.
func NewWorkflow(st store.DeviceStore, issuer TokenIssuer, refresher Refresher, notifier notify.Notifier, registrationPSK, approvalPSK string, tokenTTL time.Duration) *Workflow {
	return &Workflow{
		store:           st,
		issuer:          issuer,
		refresher:       refresher,
		notifier:        notifier,
		registrationPSK: registrationPSK,
		approvalPSK:     approvalPSK,
		tokenTTL:        tokenTTL,
		logger:          slog.Default().With("component", "enroll"),
	}
}

// Registration is the result of a successful Register call. The token is
// returned to the caller immediately but cannot verify until an admin
// enables the device.
type Registration struct {
	Token      string
	InviteCode string
	ExpiresAt  time.Time
}

// Register creates a pending device record and mints its capability token.
// The registration PSK gates who may enroll at all; device names are not
// required to be unique.
func (w *Workflow) Register(ctx context.Context, deviceName, registrationPSK string) (*Registration, error) {
	if !pskMatches(registrationPSK, w.registrationPSK) {
		return nil, ErrInvalidCredential
	}
	if deviceName == "" {
		return nil, fmt.Errorf("%w: device name", ErrMissingField)
	}

	authSecret, err := randomString(authSecretLength)
	if err != nil {
		return nil, fmt.Errorf("generating auth secret: %w", err)
	}
	inviteCode, err := randomString(inviteCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generating invite code: %w", err)
	}

	device := &store.Device{
		Name:       deviceName,
		AuthSecret: authSecret,
		InviteCode: inviteCode,
		Enabled:    false,
	}
	if err := w.store.Insert(ctx, device); err != nil {
		return nil, fmt.Errorf("storing device: %w", err)
	}

	token, err := w.issuer.Issue(deviceName, authSecret, w.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("minting token: %w", err)
	}

	w.logger.Info("device registered, awaiting approval", "device", deviceName)
	w.notifyAdmin(ctx, "New device registration", map[string]string{
		"device": deviceName,
		"invite": inviteCode,
	})

	return &Registration{
		Token:      token,
		InviteCode: inviteCode,
		ExpiresAt:  time.Now().Add(w.tokenTTL),
	}, nil
}

// Enable marks the pending device as enabled and forces a cache refresh so
// the device is authenticatable as soon as this call returns. Enabling an
// already-enabled device is a no-op, not an error.
func (w *Workflow) Enable(ctx context.Context, inviteCode, approvalPSK string) error {
	if !pskMatches(approvalPSK, w.approvalPSK) {
		return ErrInvalidCredential
	}

	device, err := w.store.FindByInvite(ctx, inviteCode)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up invite: %w", err)
	}

	if device.Enabled {
		w.logger.Info("device already enabled", "device", device.Name)
		return nil
	}

	rows, err := w.store.UpdateEnabled(ctx, inviteCode, true)
	if err != nil {
		return fmt.Errorf("enabling device: %w", err)
	}
	if rows == 0 {
		// A concurrent reject won the race
		return ErrNotFound
	}

	w.logger.Info("device enabled", "device", device.Name)
	w.forceRefresh(ctx)
	return nil
}

// Reject deletes the device regardless of its enabled state and forces a
// cache refresh so any previously issued token stops verifying immediately.
func (w *Workflow) Reject(ctx context.Context, inviteCode, approvalPSK string) error {
	if !pskMatches(approvalPSK, w.approvalPSK) {
		return ErrInvalidCredential
	}

	rows, err := w.store.Delete(ctx, inviteCode)
	if err != nil {
		return fmt.Errorf("rejecting device: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	w.logger.Info("device rejected", "invite_code", inviteCode)
	w.forceRefresh(ctx)
	return nil
}

// forceRefresh makes the latest store state visible to verification. The
// state change itself is already durable, so a refresh failure is logged and
// the cache catches up on the next cycle.
func (w *Workflow) forceRefresh(ctx context.Context) {
	if err := w.refresher.ForceRefresh(ctx); err != nil {
		w.logger.Warn("forced cache refresh failed", "error", err)
	}
}

// notifyAdmin sends a best-effort notification; skipped silently when no
// notifier is configured.
func (w *Workflow) notifyAdmin(ctx context.Context, subject string, vars map[string]string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Send(ctx, subject, vars); err != nil {
		w.logger.Warn("admin notification failed", "error", err)
	}
}

// pskMatches compares a presented PSK in constant time. An empty configured
// PSK never matches, so a misconfigured deployment fails closed.
func pskMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
