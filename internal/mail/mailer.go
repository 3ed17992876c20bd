// Package mail sends transactional email, currently only password reset
// links.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Mailer sends a plain-text email to a single recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// Send delivers one message via SMTP.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	var a smtp.Auth
	if m.User != "" {
		a = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	return smtp.SendMail(m.Host+":"+m.Port, a, m.From, []string{to}, []byte(msg))
}

// LogMailer logs instead of sending. Used when SMTP is not configured, so
// development setups still surface reset links.
type LogMailer struct {
	Log zerolog.Logger
}

// Send logs the message.
func (m *LogMailer) Send(to, subject, body string) error {
	m.Log.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("mail not configured, logging instead")
	return nil
}
