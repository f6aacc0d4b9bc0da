package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/learnhub/lms-backend/internal/config"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridMailer creates a SendGridMailer from explicit configuration.
func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

func (m *SendGridMailer) Name() string { return config.MailProviderSendGrid }

// Send delivers msg. Non-2xx responses are returned as *SendError.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	v3 := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	res, err := m.client.SendWithContext(ctx, v3)
	if err != nil {
		return fail(CauseConnection, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fail(statusCause(res.StatusCode), fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body))
	}
	return nil
}

func statusCause(code int) Cause {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CauseAuth
	case code == http.StatusBadRequest:
		return CauseRecipient
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return CauseConnection
	default:
		return CauseUnknown
	}
}
