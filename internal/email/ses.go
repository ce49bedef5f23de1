package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/relist-market/backend/internal/metrics"
)

// Sender sends transactional email. Handlers depend on this interface
// so tests can capture outgoing mail instead of hitting SES.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// SESService handles sending emails via AWS SES
type SESService struct {
	client    *ses.Client
	fromEmail string
	fromName  string
	baseURL   string
}

// NewSESService creates a new email service using AWS SES
func NewSESService(region, fromEmail, fromName, baseURL string) (*SESService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESService{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}, nil
}

// SendVerificationEmail sends the address confirmation mail new accounts
// must act on before they can list items for sale
func (e *SESService) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", e.baseURL, token)

	subject := "Confirm your Relist email address"
	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.button { display: inline-block; padding: 12px 24px; background-color: #2e7d32; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
			</style>
		</head>
		<body>
			<div class="container">
				<h1>Confirm your email</h1>
				<p>Thanks for signing up to Relist. Confirm your email address to start selling.</p>
				<p>This link expires in 48 hours.</p>
				<a href="%s" class="button">Confirm Email</a>
				<p>Or copy and paste this link into your browser:</p>
				<p style="word-break: break-all; color: #666;">%s</p>
				<p>If you didn't create a Relist account, you can safely ignore this email.</p>
				<hr>
				<p style="color: #999; font-size: 12px;">This is an automated message from Relist.</p>
			</div>
		</body>
		</html>
	`, verifyURL, verifyURL)

	textBody := fmt.Sprintf(`
Confirm your Relist email address

Thanks for signing up to Relist. Confirm your email address to start selling.

This link expires in 48 hours.

%s

If you didn't create a Relist account, you can safely ignore this email.
	`, verifyURL)

	err := e.send(ctx, toEmail, subject, htmlBody, textBody)
	recordEmail("verification", err)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// SendPasswordResetEmail sends a password reset email with the reset token
func (e *SESService) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", e.baseURL, token)

	subject := "Reset your Relist password"
	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.button { display: inline-block; padding: 12px 24px; background-color: #2e7d32; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
			</style>
		</head>
		<body>
			<div class="container">
				<h1>Reset your password</h1>
				<p>You requested to reset the password for your Relist account.</p>
				<p>Click the button below to choose a new password. This link expires in 1 hour.</p>
				<a href="%s" class="button">Reset Password</a>
				<p>Or copy and paste this link into your browser:</p>
				<p style="word-break: break-all; color: #666;">%s</p>
				<p>If you didn't request this password reset, you can safely ignore this email.</p>
				<hr>
				<p style="color: #999; font-size: 12px;">This is an automated message from Relist.</p>
			</div>
		</body>
		</html>
	`, resetURL, resetURL)

	textBody := fmt.Sprintf(`
Reset your Relist password

You requested to reset the password for your Relist account.

Click the link below to choose a new password. This link expires in 1 hour.

%s

If you didn't request this password reset, you can safely ignore this email.
	`, resetURL)

	err := e.send(ctx, toEmail, subject, htmlBody, textBody)
	recordEmail("password_reset", err)
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (e *SESService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	_, err := e.client.SendEmail(ctx, input)
	return err
}

func recordEmail(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	metrics.Get().EmailsSentTotal.WithLabelValues(kind, status).Inc()
}
