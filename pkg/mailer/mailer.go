// Package mailer sends transactional email through Resend.
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Config contains Resend credentials and the sender identity.
type Config struct {
	APIKey string
	From   string
}

// Mailer delivers transactional email. A nil Mailer is safe to call and
// drops messages, which keeps local development working without credentials.
type Mailer struct {
	client *resend.Client
	from   string
	logger zerolog.Logger
}

// New constructs a mailer, or returns nil when no API key is configured.
func New(cfg Config, logger zerolog.Logger) *Mailer {
	if cfg.APIKey == "" {
		logger.Warn().Msg("resend api key not set, outbound email disabled")
		return nil
	}

	from := cfg.From
	if from == "" {
		from = "RentEase <noreply@rentease.app>"
	}

	return &Mailer{
		client: resend.NewClient(cfg.APIKey),
		from:   from,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

// Send delivers a single HTML email.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if m == nil {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		m.logger.Error().Err(err).Str("subject", subject).Msg("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info().Str("email_id", sent.Id).Str("subject", subject).Msg("email sent")

	return nil
}
