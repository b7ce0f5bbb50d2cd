package mail

import (
	"context"

	appidentity "github.com/ecommerce/backend/internal/application/identity"
	"go.uber.org/zap"
)

// LogMailer writes account mails to the log instead of sending them.
// Used when mail delivery is disabled, so links are still reachable in development.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a logging mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerification logs the verification link
func (m *LogMailer) SendVerification(_ context.Context, mail appidentity.AccountMail) error {
	m.logger.Info("Verification mail (delivery disabled)",
		zap.String("to", mail.To),
		zap.String("link", mail.Link))
	return nil
}

// SendPasswordReset logs the reset link
func (m *LogMailer) SendPasswordReset(_ context.Context, mail appidentity.AccountMail) error {
	m.logger.Info("Password reset mail (delivery disabled)",
		zap.String("to", mail.To),
		zap.String("link", mail.Link))
	return nil
}

var _ appidentity.Mailer = (*LogMailer)(nil)
