// Package contact holds the external collaborators of the contact form:
// the SMTP relay that delivers messages and the captcha provider that
// gates submissions.
package contact

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"devfolio/api/models"
)

// SMTPMailer delivers contact-form submissions to the site owner over a
// plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	to       string
}

// NewSMTPMailerFromEnv reads the relay configuration from the environment.
func NewSMTPMailerFromEnv() (*SMTPMailer, error) {
	m := &SMTPMailer{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("CONTACT_FROM_ADDRESS"),
		to:       os.Getenv("CONTACT_TO_ADDRESS"),
	}
	if m.host == "" || m.to == "" {
		return nil, fmt.Errorf("SMTP_HOST and CONTACT_TO_ADDRESS environment variables are required for the contact form")
	}
	if m.port == "" {
		m.port = "587"
	}
	if m.from == "" {
		m.from = m.username
	}
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, req models.ContactRequest) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", m.to)
	fmt.Fprintf(&msg, "Reply-To: %s <%s>\r\n", req.Name, req.Email)
	fmt.Fprintf(&msg, "Subject: [Portfolio Contact] %s\r\n", req.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&msg, "Name: %s\nEmail: %s\n\n%s\n", req.Name, req.Email, req.Message)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{m.to}, []byte(msg.String()))
	}()

	// net/smtp has no context support; honor cancellation ourselves.
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send contact email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
