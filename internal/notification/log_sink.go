package notification

import (
	"context"

	"cluster-registration/internal/model"

	"go.uber.org/zap"
)

type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Deliver(ctx context.Context, n *model.RegistrationNotification) error {
	s.log.Info("new registration",
		zap.String("notification_id", n.ID.String()),
		zap.Int("registration_id", n.RegistrationID),
		zap.Int("event_id", n.EventID),
		zap.String("event_title", n.EventTitle),
		zap.String("contact_name", n.ContactName),
		zap.String("contact_email", n.ContactEmail),
		zap.Time("registered_at", n.RegisteredAt),
	)
	return nil
}
