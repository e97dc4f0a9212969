// Package mail sends transactional email. The only message today is the
// password reset link.
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer delivers messages to a user's email address.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendPasswordReset emails a reset link. The link embeds the raw reset
// token; the server keeps only its hash.
func (m *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	body := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: Reset your Shelfmark password",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Someone requested a password reset for this address.",
		"",
		"Reset your password within the next hour:",
		resetURL,
		"",
		"If this wasn't you, ignore this email; your password is unchanged.",
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}

	m.logger.Info("password reset email sent", "to", to)
	return nil
}

// NoopMailer drops messages. Used in tests and when SMTP is not
// configured; the reset flow still works but the link only appears in
// server logs.
type NoopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer creates a mailer that only logs.
func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

// SendPasswordReset logs the reset link instead of delivering it.
func (m *NoopMailer) SendPasswordReset(to, resetURL string) error {
	m.logger.Warn("SMTP not configured, password reset link not emailed", "to", to, "url", resetURL)
	return nil
}
