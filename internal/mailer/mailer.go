// Package mailer sends transactional mail over SMTP. When no SMTP host is
// configured the mailer logs what it would have sent and reports success, so
// local development never needs a mail server.
package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
}

func New(host string, port int, username, password, from string, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// SendPasswordReset mails the reset link to the user.
func (m *Mailer) SendPasswordReset(to, name, link string) error {
	subject := "Password reset"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"A password reset was requested for your account. Open the link below "+
			"within one hour to choose a new password:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, ignore this message.\r\n",
		name, link,
	)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	if m.host == "" {
		m.logger.Info("smtp not configured, mail suppressed", "to", to, "subject", subject)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
