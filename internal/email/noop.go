package email

import (
	"context"

	"github.com/relist-market/backend/internal/logger"
	"go.uber.org/zap"
)

// LogSender writes outgoing mail to the log instead of SES, for local
// development where no AWS credentials exist
type LogSender struct{}

func (LogSender) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	logger.Log.Info("verification email (not sent, log sender active)",
		zap.String("to", toEmail),
		zap.String("token", token),
	)
	return nil
}

func (LogSender) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger.Log.Info("password reset email (not sent, log sender active)",
		zap.String("to", toEmail),
		zap.String("token", token),
	)
	return nil
}
