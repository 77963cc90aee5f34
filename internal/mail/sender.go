// Package mail composes account emails and hands them to a delivery provider.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/config"

	"github.com/resend/resend-go/v3"
)

// Email is a fully prepared message.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email *Email) error {
	s.logger.InfoContext(ctx, "email (not delivered)",
		slog.String("to", strings.Join(email.To, ",")),
		slog.String("subject", email.Subject),
		slog.String("body", email.Text),
	)
	return nil
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender returns a ResendSender authenticated with apiKey.
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Send(ctx context.Context, email *Email) error {
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

// NewSender picks the provider named by MAIL_PROVIDER. An empty name means log.
func NewSender(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	switch cfg.MailProvider {
	case "", "log":
		return NewLogSender(logger), nil
	case "resend":
		return NewResendSender(cfg.ResendAPIKey), nil
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", cfg.MailProvider)
	}
}
