// ABOUTME: SMTP notification sink sending HTML mail to the administrator
// ABOUTME: Renders a template file with {variable} substitution, STARTTLS delivery

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"github.com/ChrisTracy/gate-opener/internal/config"
)

// defaultMailBody is used when no template file is configured.
const defaultMailBody = `<html><body>
<h2>{subject}</h2>
<p>Device <strong>{device}</strong> requested access.</p>
<p>Invite code: <code>{invite}</code></p>
<p>Approve or reject it with the approval key.</p>
</body></html>`

// SMTPNotifier sends HTML mail via an SMTP relay.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier creates a mail sink from configuration.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		logger: slog.Default().With("component", "notify", "sink", "smtp"),
	}
}

// Send renders the message body and delivers it to the configured receiver.
func (n *SMTPNotifier) Send(ctx context.Context, subject string, vars map[string]string) error {
	body, err := n.renderBody(subject, vars)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(n.cfg.Receiver); err != nil {
		return fmt.Errorf("setting receiver: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	n.logger.Debug("mail sent", "subject", subject, "to", n.cfg.Receiver)
	return nil
}

// renderBody loads the configured template file (or the built-in fallback)
// and substitutes {variable} placeholders.
func (n *SMTPNotifier) renderBody(subject string, vars map[string]string) (string, error) {
	template := defaultMailBody
	if n.cfg.TemplatePath != "" {
		data, err := os.ReadFile(n.cfg.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("reading mail template: %w", err)
		}
		template = string(data)
	}

	merged := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	merged["subject"] = subject

	return renderTemplate(template, merged), nil
}
