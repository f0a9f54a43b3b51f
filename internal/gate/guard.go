// ABOUTME: Privileged-action guard: actuate for an authenticated principal
// ABOUTME: Also hosts the admin-only on-demand cache refresh

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisTracy/gate-opener/internal/auth"
	"github.com/ChrisTracy/gate-opener/internal/notify"
)

// ErrForbidden is returned when a non-admin principal requests an admin-only
// operation.
var ErrForbidden = errors.New("admin privileges required")

// Refresher is the on-demand cache rebuild exposed to admin principals.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Guard executes the privileged physical action for authenticated
// principals. The pulse duration is fixed per deployment; callers cannot
// vary it.
type Guard struct {
	actuator  Actuator
	refresher Refresher
	notifier  notify.Notifier // nil when notification is unconfigured

	friendlyName string
	pulse        time.Duration

	logger *slog.Logger
}

// NewGuard creates the actuation guard. notifier may be nil.
func NewGuard(actuator Actuator, refresher Refresher, notifier notify.Notifier, friendlyName string, pulse time.Duration) *Guard {
	return &Guard{
		actuator:     actuator,
		refresher:    refresher,
		notifier:     notifier,
		friendlyName: friendlyName,
		pulse:        pulse,
		logger:       slog.Default().With("component", "gate"),
	}
}

// Trigger pulses the actuator exactly once on behalf of the principal.
// There is no retry: either the single pulse issues or the call fails. The
// outcome is logged and best-effort notified with the principal's identity.
func (g *Guard) Trigger(ctx context.Context, principal *auth.Principal) error {
	if err := g.actuator.Pulse(ctx, g.pulse); err != nil {
		g.logger.Error("actuation failed", "device", principal.DeviceName, "error", err)
		return fmt.Errorf("pulsing actuator: %w", err)
	}

	g.logger.Info("actuated", "gate", g.friendlyName, "device", principal.DeviceName)

	if g.notifier != nil {
		if err := g.notifier.Send(ctx, g.friendlyName+" opened", map[string]string{
			"device": principal.DeviceName,
			"gate":   g.friendlyName,
		}); err != nil {
			g.logger.Warn("actuation notification failed", "error", err)
		}
	}

	return nil
}

// RequestRefresh rebuilds the credential cache on demand. Restricted to
// admin principals; everyone else gets ErrForbidden.
func (g *Guard) RequestRefresh(ctx context.Context, principal *auth.Principal) error {
	if !principal.IsAdmin {
		return ErrForbidden
	}

	if err := g.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing credential cache: %w", err)
	}

	g.logger.Info("cache refresh requested", "device", principal.DeviceName)
	return nil
}
