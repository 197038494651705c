// Package notification provides NotificationSink implementations for
// delivering operator notifications.
package notification

import (
	"context"

	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// Ensure LogSink implements sync.NotificationSink
var _ syncdomain.NotificationSink = (*LogSink)(nil)

// LogSink writes notifications to the structured log. It is the default sink
// in development and the fallback when no delivery channel is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed notification sink
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Notify logs the notification
func (s *LogSink) Notify(_ context.Context, n *syncdomain.Notification) error {
	s.logger.Info("operator notification",
		zap.String("notification_id", n.ID.String()),
		zap.String("kind", string(n.Kind)),
		zap.String("listing_id", n.ListingID.String()),
		zap.String("platform", n.Platform.String()),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
	return nil
}
