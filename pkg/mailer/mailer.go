package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/crawdwall/capital-review-api/pkg/config"
)

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay with optional AUTH.
type SMTPMailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

// NewSMTP constructs a mailer from configuration.
func NewSMTP(cfg config.SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host: cfg.Host,
		from: cfg.From,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Send delivers the message. Errors are returned to the caller; retry and
// swallow policy belong to the dispatching queue, not here.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, envelopeFrom(m.from), []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// envelopeFrom strips a display name like `Name <addr>` down to the address.
func envelopeFrom(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return from
}
