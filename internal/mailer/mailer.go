// Package mailer sends the service's outbound account emails. Sending is
// best-effort: callers log failures and never fail the enclosing request
// because of mail transport problems.
package mailer

import (
	"context"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/allisson/flexauth/internal/config"
)

// Mailer sends the account lifecycle emails.
type Mailer interface {
	// SendLockoutWarning warns the account owner that sign-in is blocked
	// until the given time after repeated failed attempts.
	SendLockoutWarning(ctx context.Context, email string, blockedUntil time.Time) error

	// SendPasswordResetLink mails the single-use reset link for reqID.
	SendPasswordResetLink(ctx context.Context, email, reqID string) error

	// SendPasswordResetConfirmation confirms a completed password reset.
	SendPasswordResetConfirmation(ctx context.Context, email string) error

	// SendVerificationLink mails the email verification link for reqID.
	SendVerificationLink(ctx context.Context, email, reqID string) error

	// SendSecurityAlert notifies the account owner of a refresh attempt
	// from an unrecognized device.
	SendSecurityAlert(ctx context.Context, email, userAgent string) error
}

// SMTPMailer implements Mailer over an authenticated SMTP connection.
type SMTPMailer struct {
	client    *mail.Client
	from      string
	fromName  string
	serverURL string
	timeout   time.Duration
}

// NewSMTPMailer creates a mailer from the process configuration.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.SMTPDomain,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Email),
		mail.WithPassword(cfg.EmailPassword),
		mail.WithTimeout(cfg.MailTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:    client,
		from:      cfg.Email,
		fromName:  cfg.MailName,
		serverURL: cfg.ServerURL,
		timeout:   cfg.MailTimeout,
	}, nil
}

// SendLockoutWarning implements Mailer.
func (m *SMTPMailer) SendLockoutWarning(ctx context.Context, email string, blockedUntil time.Time) error {
	body := fmt.Sprintf(
		"Your account has been temporarily blocked after repeated failed sign-in attempts.\n\n"+
			"Sign-in will be possible again at %s.\n\n"+
			"If this was not you, reset your password once the block lifts.",
		blockedUntil.UTC().Format(time.RFC1123),
	)
	return m.send(ctx, email, "Account temporarily blocked", body)
}

// SendPasswordResetLink implements Mailer.
func (m *SMTPMailer) SendPasswordResetLink(ctx context.Context, email, reqID string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password here: %s/api/password/forget-form/%s\n\n"+
			"The link is valid for 10 minutes and can be used once. "+
			"If you did not request this, ignore this email.",
		m.serverURL, reqID,
	)
	return m.send(ctx, email, "Reset your password", body)
}

// SendPasswordResetConfirmation implements Mailer.
func (m *SMTPMailer) SendPasswordResetConfirmation(ctx context.Context, email string) error {
	body := "Your password has been changed.\n\n" +
		"If you did not do this, contact support immediately."
	return m.send(ctx, email, "Your password was changed", body)
}

// SendVerificationLink implements Mailer.
func (m *SMTPMailer) SendVerificationLink(ctx context.Context, email, reqID string) error {
	body := fmt.Sprintf(
		"Confirm your email address by opening this link:\n\n"+
			"%s/api/user/verify-email/%s\n\n"+
			"The link is valid for 24 hours.",
		m.serverURL, reqID,
	)
	return m.send(ctx, email, "Verify your email address", body)
}

// SendSecurityAlert implements Mailer.
func (m *SMTPMailer) SendSecurityAlert(ctx context.Context, email, userAgent string) error {
	body := fmt.Sprintf(
		"A session refresh for your account was attempted from an unrecognized device:\n\n"+
			"    %s\n\n"+
			"If this was not you, revoke your sessions and change your password.",
		userAgent,
	)
	return m.send(ctx, email, "Security alert: unrecognized device", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
