// Package notify delivers guest-facing notifications.  Confirmation
// and cancellation emails are published to the message broker by the
// Publisher and rendered/sent by the queue consumer through a Sender.
package notify

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// SMTPSender sends mail through a plain-auth SMTP relay configured
// from the environment.  When the SMTP variables are unset the sender
// logs the message instead, which keeps local development working
// without a relay.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
}

// NewSMTPSenderFromEnv builds a sender from SMTP_* environment
// variables.  Missing variables are allowed; Send falls back to
// logging in that case.
func NewSMTPSenderFromEnv() *SMTPSender {
	return &SMTPSender{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
	}
}

// Send delivers one message.  Header fields are sanitized against CRLF
// injection before being written.
func (s *SMTPSender) Send(to, subject, text string) error {
	if s.Host == "" || s.Port == "" || s.Username == "" || s.Password == "" {
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("[MOCK EMAIL] SMTP not configured; logging instead of sending")
		return nil
	}

	safe := func(v string) string {
		return strings.ReplaceAll(strings.TrimSpace(v), "\r\n", " ")
	}
	to = safe(to)
	subject = safe(subject)

	from := fmt.Sprintf("%s <%s>", safe(s.FromName), s.Username)
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		from, to, subject, text)

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	if err := smtp.SendMail(addr, auth, s.Username, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
