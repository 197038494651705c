package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// SaleEventService turns inbound platform sale notices into MarkSold calls.
// Platforms redeliver webhooks, so events are deduplicated through the
// idempotency store before any state changes.
type SaleEventService struct {
	orchestrator *Orchestrator
	rows         syncdomain.PlatformListingRepository
	idempotency  shared.IdempotencyStore
	idemCfg      shared.IdempotencyConfig
	logger       *zap.Logger
}

// NewSaleEventService creates a sale event service
func NewSaleEventService(
	orchestrator *Orchestrator,
	rows syncdomain.PlatformListingRepository,
	idempotency shared.IdempotencyStore,
	idemCfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *SaleEventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleEventService{
		orchestrator: orchestrator,
		rows:         rows,
		idempotency:  idempotency,
		idemCfg:      idemCfg,
		logger:       logger,
	}
}

// HandleSaleEvent resolves the platform-assigned listing ID back to a
// unified listing and records the sale. Duplicate events return
// ErrSaleAlreadyProcessed without touching any state.
func (s *SaleEventService) HandleSaleEvent(ctx context.Context, event SaleEvent) (result *MarkSoldResult, err error) {
	if !event.Platform.IsValid() {
		return nil, fmt.Errorf("%w: unknown platform %q", shared.ErrInvalidInput, event.Platform)
	}
	if event.ExternalID == "" {
		return nil, fmt.Errorf("%w: external listing ID is required", shared.ErrInvalidInput)
	}

	if s.idempotency != nil && s.idemCfg.Enabled {
		key := dedupeKey(event)
		fresh, markErr := s.idempotency.MarkProcessed(ctx, key, s.idemCfg.TTL)
		switch {
		case markErr != nil:
			// A broken dedupe store must not drop sales; MarkSold is
			// idempotent anyway, so proceed and log.
			s.logger.Warn("idempotency store unavailable, processing without dedupe",
				zap.String("event_id", event.EventID),
				zap.Error(markErr),
			)
		case !fresh:
			return nil, syncdomain.ErrSaleAlreadyProcessed
		default:
			// The claim holds only if the sale commits. Releasing it on
			// failure lets the platform's redelivery get through instead
			// of being acknowledged as a duplicate.
			defer func() {
				if err == nil {
					return
				}
				if remErr := s.idempotency.Remove(ctx, key); remErr != nil {
					s.logger.Warn("failed to release dedupe claim",
						zap.String("key", key),
						zap.Error(remErr),
					)
				}
			}()
		}
	}

	row, err := s.rows.FindByExternalID(ctx, event.Platform, event.ExternalID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", syncdomain.ErrExternalListingMissing, event.Platform, event.ExternalID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale event received",
		zap.String("event_id", event.EventID),
		zap.String("platform", event.Platform.String()),
		zap.String("external_id", event.ExternalID),
		zap.String("listing_id", row.ListingID.String()),
	)

	return s.orchestrator.MarkSold(ctx, row.ListingID, event.Platform, event.SalePrice)
}

// dedupeKey keys on the platform's event ID when one was sent and falls
// back to the platform listing ID: an item sells at most once per listing,
// so the external ID is a safe stand-in.
func dedupeKey(event SaleEvent) string {
	if event.EventID != "" {
		return "sale:" + event.Platform.String() + ":" + event.EventID
	}
	return "sale:" + event.Platform.String() + ":" + event.ExternalID
}
