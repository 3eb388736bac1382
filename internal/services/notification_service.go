package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationDispatcherInterface is the consumed outbound channel. Send
// never blocks a state mutation: callers treat failures as
// ExternalDependencyError and report them in aggregate only.
type NotificationDispatcherInterface interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error)
}

// logNotificationDispatcher writes the message to the log instead of a real
// transport. Wire an SMTP-backed implementation in production.
type logNotificationDispatcher struct {
	logger *zap.Logger
}

func NewLogNotificationDispatcher(logger *zap.Logger) NotificationDispatcherInterface {
	return &logNotificationDispatcher{logger: logger}
}

func (d *logNotificationDispatcher) Send(ctx context.Context, to, subject, textBody, _ string) (string, error) {
	id := uuid.NewString()
	d.logger.Info("dispatching notification",
		zap.String("id", id),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", textBody),
	)
	return id, nil
}
