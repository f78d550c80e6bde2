package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers account mails over plain SMTP. No mail library exists
// in this codebase's dependency set; the message bodies are simple enough
// that net/smtp suffices.
type SMTPMailer struct {
	addr      string // host:port
	from      string
	auth      smtp.Auth
	verifyURL string // base URL the registration link points at

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(addr, from, username, password, verifyURL string) *SMTPMailer {
	m := &SMTPMailer{
		addr:      addr,
		from:      from,
		verifyURL: strings.TrimRight(verifyURL, "/"),
		send:      smtp.SendMail,
	}
	if username != "" {
		host, _, _ := strings.Cut(addr, ":")
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

func (m *SMTPMailer) SendRegistrationMail(ctx context.Context, identity Identity) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nwelcome to Ark. Please verify your account:\r\n%s/verify/%s\r\n",
		identity.Name, m.verifyURL, identity.UUID)
	return m.deliver(identity.Mail, "Welcome to Ark", body)
}

func (m *SMTPMailer) SendRegistrationMailWithPassword(ctx context.Context, identity Identity, password string) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nan account has been created for you. Your initial password is:\r\n\r\n%s\r\n\r\nPlease change it after your first login.\r\n",
		identity.Name, password)
	return m.deliver(identity.Mail, "Your new Ark account", body)
}

func (m *SMTPMailer) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
