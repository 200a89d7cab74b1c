package mailer

import (
	"context"

	"go.uber.org/zap"
)

// logMailer is used when SMTP is not configured: sends are logged instead of
// delivered so the reconcilers behave identically in development.
type logMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, to string, kind Kind, payload Payload) error {
	m.logger.Infow("mail send (log only)",
		"to", to,
		"kind", string(kind),
		"uploadUrl", payload.UploadURL,
		"expiresAt", payload.ExpiresAt,
	)
	return nil
}
