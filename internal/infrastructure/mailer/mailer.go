// Package mailer delivers the rendered alert scorecard over SMTP.
package mailer

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Config holds SMTP settings. The password comes from SMTP_PASSWORD unless
// the config file sets one.
type Config struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	FromName string   `yaml:"from_name"`
	To       []string `yaml:"to"`
	UseTLS   bool     `yaml:"use_tls"`
}

// DefaultConfig returns submission-port defaults.
func DefaultConfig() Config {
	return Config{Port: 587, UseTLS: true, FromName: "AdPulse"}
}

// ApplyEnvOverrides prefers the environment for the secret.
func (c *Config) ApplyEnvOverrides() {
	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		c.Password = pw
	}
}

// Configured reports whether the minimum sending settings are present.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != "" && len(c.To) > 0
}

// Mailer sends multipart HTML mail.
type Mailer struct {
	cfg Config
}

// New returns a mailer for the given config.
func New(cfg Config) *Mailer { return &Mailer{cfg: cfg} }

// SendHTML sends an HTML body (with a plain-text alternative) to the
// configured recipients.
func (m *Mailer) SendHTML(subject, htmlBody, textBody string) error {
	cfg := m.cfg
	if !cfg.Configured() {
		return fmt.Errorf("SMTP is not fully configured")
	}

	boundary := generateBoundary()
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", cfg.FromName, cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(cfg.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	if textBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(textBody))
		msg.WriteString("\r\n")
	}

	// Base64 keeps long rendered table rows under the RFC 5322 line limit.
	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	var err error
	if cfg.UseTLS {
		err = m.sendWithTLS(addr, auth, msg.String())
	} else {
		err = smtp.SendMail(addr, auth, cfg.From, cfg.To, []byte(msg.String()))
	}
	if err != nil {
		return err
	}

	log.Info().Str("host", cfg.Host).Strs("to", cfg.To).Str("subject", subject).Msg("Alert email sent")
	return nil
}

// sendWithTLS connects over implicit TLS, falling back to STARTTLS when
// the direct handshake is refused (port 587 servers).
func (m *Mailer) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return m.sendWithSTARTTLS(addr, auth, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return m.transact(client, auth, msg)
}

func (m *Mailer) sendWithSTARTTLS(addr string, auth smtp.Auth, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	return m.transact(client, auth, msg)
}

func (m *Mailer) transact(client *smtp.Client, auth smtp.Auth, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, to := range m.cfg.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "adpulse_boundary_fallback"
	}
	return fmt.Sprintf("adpulse_%x", b)
}

// encodeBase64WithLineBreaks encodes content with 76-char lines per RFC 2045.
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	const lineLen = 76
	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}
	return result.String()
}
