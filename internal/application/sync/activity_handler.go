package sync

import (
	"context"
	"fmt"

	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// ActivityHandler subscribes to platform listing events and writes a
// structured activity feed for the operator. Posting failures below the
// retry ceiling are logged at info; exhausted retries escalate to warn.
type ActivityHandler struct {
	logger *zap.Logger
}

// NewActivityHandler creates a new activity feed handler
func NewActivityHandler(logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityHandler) EventTypes() []string {
	return []string{
		syncdomain.EventTypeListingPosted,
		syncdomain.EventTypePostingFailed,
		syncdomain.EventTypeListingDelisted,
		syncdomain.EventTypeRetriesExhausted,
	}
}

// Handle processes one platform listing event
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *syncdomain.ListingPostedEvent:
		h.logger.Info("listing went live",
			zap.String("listing_id", e.ListingID.String()),
			zap.String("platform", e.Platform.String()),
			zap.String("external_id", e.ExternalID),
		)
	case *syncdomain.PostingFailedEvent:
		h.logger.Info("posting attempt failed",
			zap.String("listing_id", e.ListingID.String()),
			zap.String("platform", e.Platform.String()),
			zap.Int("attempt_count", e.AttemptCount),
			zap.String("error_detail", e.ErrorDetail),
		)
	case *syncdomain.ListingDelistedEvent:
		h.logger.Info("listing taken down",
			zap.String("listing_id", e.ListingID.String()),
			zap.String("platform", e.Platform.String()),
		)
	case *syncdomain.RetriesExhaustedEvent:
		h.logger.Warn("posting retries exhausted",
			zap.String("listing_id", e.ListingID.String()),
			zap.String("platform", e.Platform.String()),
			zap.Int("attempt_count", e.AttemptCount),
		)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// Ensure ActivityHandler implements shared.EventHandler
var _ shared.EventHandler = (*ActivityHandler)(nil)
