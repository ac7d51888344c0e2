package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

// Email is a single transactional message.
type Email struct {
	ToAddress string
	ToName    string
	Subject   string
	Text      string
	HTML      string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer returns a SendGrid mailer when an API key is configured and a
// logging mailer otherwise.
func NewMailer(cfg config.SendgridConfig, logg *logger.Logger) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLogMailer(logg)
	}
	return NewSendgridMailer(cfg, logg)
}

type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logg   *logger.Logger
}

func NewSendgridMailer(cfg config.SendgridConfig, logg *logger.Logger) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logg:   logg,
	}
}

func (m *SendgridMailer) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.ToAddress) == "" {
		return fmt.Errorf("recipient address required")
	}
	to := mail.NewEmail(email.ToName, email.ToAddress)
	message := mail.NewSingleEmail(m.from, email.Subject, to, email.Text, email.HTML)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithFields(ctx, map[string]any{
			"subject":     email.Subject,
			"status_code": resp.StatusCode,
		}), "notification.email_sent")
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Bodies are
// never logged since they can carry one-time codes.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"to":      email.ToAddress,
		"subject": email.Subject,
	}), "notification.email_logged")
	return nil
}
