package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies an operator notification
type NotificationKind string

const (
	// NotificationKindSale fires when an item sells on any platform
	NotificationKindSale NotificationKind = "sale"
	// NotificationKindFailedListing fires when a posting exhausts its retries
	NotificationKindFailedListing NotificationKind = "failed_listing"
	// NotificationKindPriceAlert fires when watched market prices move
	NotificationKindPriceAlert NotificationKind = "price_alert"
)

// Notification is a fire-and-forget message to the operator
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	ListingID uuid.UUID        `json:"listing_id"`
	Platform  PlatformCode     `json:"platform,omitempty"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates a notification
func NewNotification(kind NotificationKind, listingID uuid.UUID, platform PlatformCode, title, body string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		Kind:      kind,
		ListingID: listingID,
		Platform:  platform,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
}

// NotificationSink delivers notifications. Delivery is fire-and-forget:
// callers log sink errors and move on, they never propagate them into the
// operation that triggered the notification.
type NotificationSink interface {
	Notify(ctx context.Context, n *Notification) error
}
