// ABOUTME: Notifier interface and fan-out for admin notifications
// ABOUTME: All sends are best-effort; failures are logged at call sites, never propagated

package notify

import (
	"context"
	"log/slog"

	"github.com/ChrisTracy/gate-opener/internal/config"
)

// Notifier delivers a message to the administrator. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, subject string, vars map[string]string) error
}

// Multi fans a notification out to every configured sink. A failing sink is
// logged and skipped; the other sinks still get the message.
type Multi struct {
	sinks  []Notifier
	logger *slog.Logger
}

// NewMulti creates a fan-out notifier over the given sinks.
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{
		sinks:  sinks,
		logger: slog.Default().With("component", "notify"),
	}
}

// Send delivers to all sinks. Always returns nil; per-sink failures are
// logged only.
func (m *Multi) Send(ctx context.Context, subject string, vars map[string]string) error {
	for _, s := range m.sinks {
		if err := s.Send(ctx, subject, vars); err != nil {
			m.logger.Warn("notification sink failed", "subject", subject, "error", err)
		}
	}
	return nil
}

// NewFromConfig builds a notifier from configuration. Returns nil when no
// sink is enabled; callers treat a nil Notifier as "notifications
// unconfigured" and skip sends silently.
func NewFromConfig(cfg config.NotifyConfig) Notifier {
	var sinks []Notifier
	if cfg.SMTP.Enabled {
		sinks = append(sinks, NewSMTPNotifier(cfg.SMTP))
	}
	if cfg.Pushover.Enabled {
		sinks = append(sinks, NewPushoverNotifier(cfg.Pushover))
	}
	if len(sinks) == 0 {
		return nil
	}
	return NewMulti(sinks...)
}
