package mailer

import (
	"context"

	"github.com/learnhub/lms-backend/internal/config"
	"github.com/rs/zerolog"
)

// LogMailer records messages in the log instead of sending them.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) Name() string { return config.MailProviderLog }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.ToAddress).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("Mail not sent, log provider active")
	return nil
}
