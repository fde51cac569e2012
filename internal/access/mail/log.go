package mail

import (
	"context"
	"log/slog"
)

// LogMailer logs messages instead of delivering them. Used in dev when no
// SMTP relay is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.Logger.Info("mail delivery (log only)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
