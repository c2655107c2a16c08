package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// Ensure Mailer implements the interface.
var _ driven.Mailer = (*Mailer)(nil)

// DefaultPort is the SMTP relay port used when none is configured.
const DefaultPort = 25

const defaultTimeout = 30 * time.Second

// Config holds the relay settings.
type Config struct {
	Host        string
	Port        int
	FromAddress string
	FromName    string
	// ServerName is the identity announced in EHLO.
	ServerName string
	Username   string
	Password   string
	Timeout    time.Duration
}

// Mailer sends email through an SMTP relay.
type Mailer struct {
	cfg Config
	now func() time.Time
}

// NewMailer creates a mailer. An incomplete configuration yields a
// disabled mailer rather than an error.
func NewMailer(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Mailer{cfg: cfg, now: time.Now}
}

// Enabled reports whether every required setting is present.
func (m *Mailer) Enabled() bool {
	return len(m.Missing()) == 0
}

// Missing lists the required relay settings that are empty. It is the
// only definition of what a usable relay needs.
func (m *Mailer) Missing() []string {
	var missing []string
	if m.cfg.Host == "" {
		missing = append(missing, "host")
	}
	if m.cfg.FromAddress == "" {
		missing = append(missing, "from address")
	}
	if m.cfg.FromName == "" {
		missing = append(missing, "from name")
	}
	if m.cfg.ServerName == "" {
		missing = append(missing, "server name")
	}
	return missing
}

// Send delivers msg through the relay.
func (m *Mailer) Send(ctx context.Context, msg driven.Message) error {
	if !m.Enabled() {
		return domain.ErrMailDisabled
	}
	if msg.To == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}

	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromAddress}
	data, err := buildMessage(from, m.cfg.ServerName, msg, m.now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	deadline := m.now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Hello(m.cfg.ServerName); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	if err := client.Quit(); err != nil {
		logger.Debug("mail: quit: %v", err)
	}

	logger.Debug("mail: sent %q to %s", msg.Subject, msg.To)
	return nil
}
