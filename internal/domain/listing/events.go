package listing

import (
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeListing = "UnifiedListing"

// Event type constants
const (
	EventTypeListingCreated  = "ListingCreated"
	EventTypeListingSold     = "ListingSold"
	EventTypeListingArchived = "ListingArchived"
)

// ListingCreatedEvent is published when a new listing is drafted
type ListingCreatedEvent struct {
	shared.BaseDomainEvent
	ListingID uuid.UUID       `json:"listing_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Condition Condition       `json:"condition"`
}

// NewListingCreatedEvent creates a new ListingCreatedEvent
func NewListingCreatedEvent(l *UnifiedListing) *ListingCreatedEvent {
	return &ListingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingCreated, AggregateTypeListing, l.ID),
		ListingID:       l.ID,
		Title:           l.Title,
		Price:           l.Price,
		Condition:       l.Condition,
	}
}

// ListingSoldEvent is published when a listing sells on any platform
type ListingSoldEvent struct {
	shared.BaseDomainEvent
	ListingID    uuid.UUID       `json:"listing_id"`
	Title        string          `json:"title"`
	SoldPlatform string          `json:"sold_platform"`
	SoldPrice    decimal.Decimal `json:"sold_price"`
}

// NewListingSoldEvent creates a new ListingSoldEvent
func NewListingSoldEvent(l *UnifiedListing, platform string, price decimal.Decimal) *ListingSoldEvent {
	return &ListingSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingSold, AggregateTypeListing, l.ID),
		ListingID:       l.ID,
		Title:           l.Title,
		SoldPlatform:    platform,
		SoldPrice:       price,
	}
}

// ListingArchivedEvent is published when a listing is archived
type ListingArchivedEvent struct {
	shared.BaseDomainEvent
	ListingID uuid.UUID `json:"listing_id"`
	Title     string    `json:"title"`
}

// NewListingArchivedEvent creates a new ListingArchivedEvent
func NewListingArchivedEvent(l *UnifiedListing) *ListingArchivedEvent {
	return &ListingArchivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingArchived, AggregateTypeListing, l.ID),
		ListingID:       l.ID,
		Title:           l.Title,
	}
}
