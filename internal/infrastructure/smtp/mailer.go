package smtp

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/corpdeals-api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendVerificationCode(to, companyName, plaintextCode string, expiresAt time.Time) error
}

type mailer struct {
	host     string
	port     string
	from     string
	fromName string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// SendVerificationCode emails the one-time code. This is the only path the
// plaintext code leaves the process on, outside the explicit dev echo.
func (m *mailer) SendVerificationCode(to, companyName, plaintextCode string, expiresAt time.Time) error {
	subject := fmt.Sprintf("Your %s verification code", companyName)
	body := fmt.Sprintf(
		"Your CorpDeals verification code is: %s\nThis code expires at %s.",
		plaintextCode, expiresAt.UTC().Format(time.RFC3339),
	)
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.fromName, m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
