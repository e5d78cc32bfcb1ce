package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/models"
)

// ConsoleSender logs notifications instead of delivering them. Used in
// development and when no mail provider is configured.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender constructs a sender that writes to the application log.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send logs the notification at info level.
func (s *ConsoleSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("recipient", n.RecipientEmail),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body))
	return nil
}
