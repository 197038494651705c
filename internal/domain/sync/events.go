package sync

import (
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypePlatformListing = "PlatformListing"

// Event type constants
const (
	EventTypeListingPosted    = "PlatformListingPosted"
	EventTypePostingFailed    = "PlatformPostingFailed"
	EventTypeListingDelisted  = "PlatformListingDelisted"
	EventTypeRetriesExhausted = "PlatformRetriesExhausted"
)

// ListingPostedEvent is published when a post attempt succeeds
type ListingPostedEvent struct {
	shared.BaseDomainEvent
	ListingID  uuid.UUID    `json:"listing_id"`
	Platform   PlatformCode `json:"platform"`
	ExternalID string       `json:"external_id"`
}

// NewListingPostedEvent creates a new ListingPostedEvent
func NewListingPostedEvent(p *PlatformListing) *ListingPostedEvent {
	return &ListingPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingPosted, AggregateTypePlatformListing, p.ID),
		ListingID:       p.ListingID,
		Platform:        p.Platform,
		ExternalID:      p.ExternalID,
	}
}

// PostingFailedEvent is published when a post attempt fails
type PostingFailedEvent struct {
	shared.BaseDomainEvent
	ListingID    uuid.UUID    `json:"listing_id"`
	Platform     PlatformCode `json:"platform"`
	AttemptCount int          `json:"attempt_count"`
	ErrorDetail  string       `json:"error_detail"`
}

// NewPostingFailedEvent creates a new PostingFailedEvent
func NewPostingFailedEvent(p *PlatformListing, errDetail string) *PostingFailedEvent {
	return &PostingFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePostingFailed, AggregateTypePlatformListing, p.ID),
		ListingID:       p.ListingID,
		Platform:        p.Platform,
		AttemptCount:    p.AttemptCount,
		ErrorDetail:     errDetail,
	}
}

// ListingDelistedEvent is published when a live listing is taken down
type ListingDelistedEvent struct {
	shared.BaseDomainEvent
	ListingID uuid.UUID    `json:"listing_id"`
	Platform  PlatformCode `json:"platform"`
}

// NewListingDelistedEvent creates a new ListingDelistedEvent
func NewListingDelistedEvent(p *PlatformListing) *ListingDelistedEvent {
	return &ListingDelistedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingDelisted, AggregateTypePlatformListing, p.ID),
		ListingID:       p.ListingID,
		Platform:        p.Platform,
	}
}

// RetriesExhaustedEvent is published when a failed posting hits the retry ceiling
type RetriesExhaustedEvent struct {
	shared.BaseDomainEvent
	ListingID    uuid.UUID    `json:"listing_id"`
	Platform     PlatformCode `json:"platform"`
	AttemptCount int          `json:"attempt_count"`
}

// NewRetriesExhaustedEvent creates a new RetriesExhaustedEvent
func NewRetriesExhaustedEvent(p *PlatformListing) *RetriesExhaustedEvent {
	return &RetriesExhaustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRetriesExhausted, AggregateTypePlatformListing, p.ID),
		ListingID:       p.ListingID,
		Platform:        p.Platform,
		AttemptCount:    p.AttemptCount,
	}
}
