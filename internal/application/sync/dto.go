package sync

import (
	"time"

	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformResult is the per-platform outcome of a post or retry pass
type PlatformResult struct {
	Platform    syncdomain.PlatformCode  `json:"platform"`
	Status      syncdomain.PostingStatus `json:"status"`
	ExternalID  string                   `json:"external_id,omitempty"`
	Attempts    int                      `json:"attempts"`
	ErrorDetail string                   `json:"error_detail,omitempty"`
	Skipped     bool                     `json:"skipped,omitempty"`
}

// PostSummary aggregates the outcome of a fan-out posting operation
type PostSummary struct {
	ListingID    uuid.UUID        `json:"listing_id"`
	Results      []PlatformResult `json:"results"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	SkippedCount int              `json:"skipped_count"`
}

// MarkSoldResult reports what happened to the other platforms when a sale
// was recorded. FailedCancels lists rows that are still live and need
// manual takedown.
type MarkSoldResult struct {
	ListingID     uuid.UUID                 `json:"listing_id"`
	SoldPlatform  syncdomain.PlatformCode   `json:"sold_platform"`
	SoldPrice     decimal.Decimal           `json:"sold_price"`
	AlreadySold   bool                      `json:"already_sold"`
	Canceled      []syncdomain.PlatformCode `json:"canceled"`
	Scheduled     []syncdomain.PlatformCode `json:"scheduled"`
	FailedCancels []syncdomain.PlatformCode `json:"failed_cancels"`
}

// RetrySummary aggregates one retry pass over failed postings
type RetrySummary struct {
	Scanned   int `json:"scanned"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Exhausted int `json:"exhausted"`
	Skipped   int `json:"skipped"`
}

// SweepSummary aggregates one scheduled-cancellation pass
type SweepSummary struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// SaleEvent is an inbound sale notice from a platform webhook
type SaleEvent struct {
	EventID    string                  `json:"event_id"`
	Platform   syncdomain.PlatformCode `json:"platform"`
	ExternalID string                  `json:"external_id"`
	SalePrice  decimal.Decimal         `json:"sale_price"`
	OccurredAt time.Time               `json:"occurred_at"`
}
