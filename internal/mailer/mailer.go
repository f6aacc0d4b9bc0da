// Package mailer delivers transactional email through the configured transport.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnhub/lms-backend/internal/config"
	"github.com/rs/zerolog"
)

// Message is one outbound email with both HTML and plain-text bodies.
type Message struct {
	ToAddress string
	ToName    string
	Subject   string
	HTML      string
	Text      string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Cause groups transport failures into the buckets operators act on.
type Cause string

const (
	CauseAuth       Cause = "auth"
	CauseConnection Cause = "connection"
	CauseRecipient  Cause = "recipient"
	CauseUnknown    Cause = "unknown"
)

// SendError wraps a transport failure with its cause.
type SendError struct {
	Cause Cause
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send mail (%s): %v", e.Cause, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func fail(cause Cause, err error) error {
	return &SendError{Cause: cause, Err: err}
}

// CauseOf extracts the cause of a send failure, CauseUnknown if it has none.
func CauseOf(err error) Cause {
	var se *SendError
	if errors.As(err, &se) {
		return se.Cause
	}
	return CauseUnknown
}

// New builds the mailer selected by cfg.Provider.
func New(cfg config.MailConfig, log zerolog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case config.MailProviderSMTP:
		return NewSMTPMailer(cfg), nil
	case config.MailProviderSendGrid:
		return NewSendGridMailer(cfg), nil
	case config.MailProviderLog:
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
