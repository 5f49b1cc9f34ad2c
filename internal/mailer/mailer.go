package mailer

import (
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"

	"github.com/rs/zerolog"

	"mttsite/internal/dto"
	"mttsite/internal/model"
)

var ErrNotConfigured = errors.New("smtp is not configured")

type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Compose returns the subject and body for a registration notification.
func Compose(msg dto.RegistrationMessage) (string, string) {
	var subject, body string
	switch msg.Status {
	case model.RegistrationApproved:
		subject = "✅ Your registration is confirmed"
		body = fmt.Sprintf("Hello %s,\n\nYour registration for \"%s\" has been approved.\nSee you there!", msg.Name, msg.EventTitle)
	case model.RegistrationRejected:
		subject = "❌ Your registration was not approved"
		body = fmt.Sprintf("Hello %s,\n\nUnfortunately your registration for \"%s\" was not approved.\nContact the organisers if you think this is a mistake.", msg.Name, msg.EventTitle)
	default:
		subject = "⏳ We received your registration"
		body = fmt.Sprintf("Hello %s,\n\nWe received your registration for \"%s\".", msg.Name, msg.EventTitle)
		if msg.PaymentStatus == model.PaymentPending && msg.Amount > 0 {
			body += fmt.Sprintf("\nIt will be confirmed once your payment of ₹%.2f is verified.", msg.Amount)
		}
	}
	return subject, body
}

func (m *Mailer) SendRegistrationEmail(msg dto.RegistrationMessage) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return ErrNotConfigured
	}

	subject, body := Compose(msg)
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\nContent-Transfer-Encoding: 8bit\r\n\r\n%s",
		m.cfg.From, msg.Email, mime.QEncoding.Encode("utf-8", subject), body,
	)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))

	if err := m.send(addr, auth, m.cfg.From, []string{msg.Email}, []byte(raw)); err != nil {
		m.log.Warn().Err(err).Str("email", msg.Email).Msg("failed to send registration email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("email", msg.Email).Str("status", msg.Status).Msg("📧 registration email sent")
	return nil
}
