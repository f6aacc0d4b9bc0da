package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/learnhub/lms-backend/internal/config"
)

const smtpDialTimeout = 10 * time.Second

// SMTPMailer sends through an SMTP relay with STARTTLS and PLAIN auth.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     mail.Address
}

// NewSMTPMailer creates an SMTPMailer from explicit configuration.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
	}
}

func (m *SMTPMailer) Name() string { return config.MailProviderSMTP }

// Send delivers msg. Failures are returned as *SendError.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	body, err := buildMIME(m.from, msg)
	if err != nil {
		return fail(CauseUnknown, err)
	}

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.host, m.port))
	if err != nil {
		return fail(CauseConnection, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fail(CauseConnection, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fail(CauseConnection, err)
		}
	}

	if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
		return fail(CauseAuth, err)
	}
	if err := c.Mail(m.from.Address); err != nil {
		return fail(classifyReply(err, CauseRecipient), err)
	}
	if err := c.Rcpt(msg.ToAddress); err != nil {
		return fail(classifyReply(err, CauseRecipient), err)
	}

	w, err := c.Data()
	if err != nil {
		return fail(classifyReply(err, CauseUnknown), err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fail(CauseConnection, err)
	}
	if err := w.Close(); err != nil {
		return fail(classifyReply(err, CauseUnknown), err)
	}

	// The relay accepted the message at the end of DATA. A failed QUIT
	// does not undo that, so it must not trigger a resend.
	_ = c.Quit()
	return nil
}

// classifyReply maps SMTP reply codes to a cause, falling back to def.
func classifyReply(err error, def Cause) Cause {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return CauseAuth
		case 421:
			return CauseConnection
		case 550, 551, 552, 553, 501:
			return CauseRecipient
		}
		return def
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CauseConnection
	}
	return def
}

func buildMIME(from mail.Address, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	to := mail.Address{Name: msg.ToName, Address: msg.ToAddress}
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		if part.body == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
