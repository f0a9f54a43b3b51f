// ABOUTME: Pushover notification sink for admin alerts
// ABOUTME: Sends a short push message with the rendered variables

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gregdel/pushover"

	"github.com/ChrisTracy/gate-opener/internal/config"
)

// PushoverNotifier sends push messages through the Pushover API.
type PushoverNotifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *slog.Logger
}

// NewPushoverNotifier creates a push sink from configuration.
func NewPushoverNotifier(cfg config.PushoverConfig) *PushoverNotifier {
	return &PushoverNotifier{
		app:       pushover.New(cfg.Token),
		recipient: pushover.NewRecipient(cfg.UserKey),
		logger:    slog.Default().With("component", "notify", "sink", "pushover"),
	}
}

// Send delivers a push message. The variables are flattened into the body
// since push messages have no template file.
func (n *PushoverNotifier) Send(ctx context.Context, subject string, vars map[string]string) error {
	msg := pushover.NewMessageWithTitle(flattenVars(vars), subject)

	if _, err := n.app.SendMessage(msg, n.recipient); err != nil {
		return fmt.Errorf("sending push message: %w", err)
	}

	n.logger.Debug("push message sent", "subject", subject)
	return nil
}

// flattenVars renders the variables as sorted "key: value" lines.
func flattenVars(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, vars[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
