package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/oriontel/backoffice-api/pkg/config"
)

// Message is a plain-text mail ready for delivery.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers plain-text messages.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer sends mail over an authenticated SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTP builds a mailer from transport configuration.
func NewSMTP(cfg config.SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.FromAddress,
	}
}

// Send delivers the message synchronously.
func (m *SMTPMailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	payload := "From: " + m.from + "\r\n" +
		"To: " + strings.Join(msg.To, ", ") + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		msg.Body + "\r\n"

	if err := smtp.SendMail(m.addr, m.auth, m.from, msg.To, []byte(payload)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
