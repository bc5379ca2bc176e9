package mailer

import (
	"fmt"
	"sync"

	"github.com/timbale/registration-service/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Sender delivers the welcome email for a completed registration. A failed
// delivery is reported, not raised: registration success never depends on it.
type Sender interface {
	SendWelcomeEmail(recipient, firstName, customerID string) bool
}

// Config holds SMTP relay settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends mail over an authenticated STARTTLS SMTP connection.
// A mutex serializes sends so concurrent registrations never race on the
// shared relay.
type SMTPMailer struct {
	cfg Config
	log *logger.Logger
	mu  sync.Mutex
}

// NewSMTPMailer creates a new SMTP welcome-mail sender
func NewSMTPMailer(cfg Config, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg: cfg,
		log: log,
	}
}

// SendWelcomeEmail builds the welcome message and delivers it. The dialer
// opens, authenticates and closes the connection per send; false is returned
// on any authentication or transport failure.
func (m *SMTPMailer) SendWelcomeEmail(recipient, firstName, customerID string) bool {
	subject, body := WelcomeMessage(firstName, customerID)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Username)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	m.mu.Lock()
	defer m.mu.Unlock()

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		m.log.Errorw("Failed to send welcome email", "recipient", recipient, "error", err)
		return false
	}

	m.log.Info("Welcome email sent successfully to %s", recipient)
	return true
}

// WelcomeMessage renders the fixed TIMBALE welcome template
func WelcomeMessage(firstName, customerID string) (subject, body string) {
	subject = "Bienvenido a TIMBALE"
	body = fmt.Sprintf(
		"Hola %s,\n\n"+
			"Aquí inicia tu viaje donde tu conciencia toma sentido humano y valor personal.\n"+
			"Tu cuenta ha sido creada exitosamente.\n"+
			"Tu Id de Cliente es: %s.",
		firstName, customerID,
	)
	return subject, body
}
