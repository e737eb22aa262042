// Package email delivers verification codes and password reset links over SMTP
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gatekeeper/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// ErrIncompleteConfig is returned when SMTP settings are missing
var ErrIncompleteConfig = errors.New("incomplete email configuration")

// Notifier delivers account lifecycle messages to a user's email address
type Notifier interface {
	SendOTP(ctx context.Context, to, otp string) error
	SendResetLink(ctx context.Context, to, token string) error
}

// sender is the part of gomail.Dialer used to deliver messages
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

var (
	otpTemplate = template.Must(template.New("otp").Parse(`
		<h2>Verify your account</h2>
		<p>Your verification code is:</p>
		<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
		<p>This code will expire in {{.Minutes}} minutes.</p>
		<p>If you did not create an account, no further action is required.</p>
	`))

	resetTemplate = template.Must(template.New("reset").Parse(`
		<h2>Reset your password</h2>
		<p>You have requested to reset your password. Click the link below to proceed:</p>
		<p><a href="{{.URL}}">Reset Password</a></p>
		<p>This link will expire in {{.Minutes}} minutes.</p>
		<p>If you did not request a password reset, please ignore this email.</p>
	`))
)

// Service implements Notifier using gomail
type Service struct {
	config    config.EmailConfig
	lifecycle config.LifecycleConfig
	sender    sender
	logger    zerolog.Logger
}

var _ Notifier = (*Service)(nil)

// NewService creates an SMTP notifier. Authentication is only attempted when a username is set.
func NewService(cfg config.EmailConfig, lifecycle config.LifecycleConfig, logger zerolog.Logger) *Service {
	return &Service{
		config:    cfg,
		lifecycle: lifecycle,
		sender:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		logger:    logger.With().Str("component", "email").Logger(),
	}
}

// ResetURL builds the link embedded in password reset emails
func ResetURL(appURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", appURL, token)
}

// SendOTP sends the verification code
func (s *Service) SendOTP(ctx context.Context, to, otp string) error {
	body, err := render(otpTemplate, map[string]any{
		"Code":    otp,
		"Minutes": int(s.lifecycle.OTPTTL.Minutes()),
	})
	if err != nil {
		return err
	}

	if err := s.send(ctx, to, "Verify your account", body); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// SendResetLink sends the password reset link
func (s *Service) SendResetLink(ctx context.Context, to, token string) error {
	body, err := render(resetTemplate, map[string]any{
		"URL":     ResetURL(s.config.AppURL, token),
		"Minutes": int(s.lifecycle.ResetTokenTTL.Minutes()),
	})
	if err != nil {
		return err
	}

	if err := s.send(ctx, to, "Reset your password", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.config.SMTPHost == "" || s.config.SMTPPort == 0 || s.config.FromAddress == "" {
		return ErrIncompleteConfig
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.config.FromAddress)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	s.logger.Debug().
		Str("to", to).
		Str("subject", subject).
		Str("smtp_host", s.config.SMTPHost).
		Int("smtp_port", s.config.SMTPPort).
		Msg("sending email")

	return s.sender.DialAndSend(msg)
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}
