package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlatformListingRepository is the persistence interface for per-platform
// posting state. Status transitions go through UpdateWithCAS so concurrent
// writers on the same row surface as shared.ErrConcurrencyConflict instead
// of silently overwriting each other.
type PlatformListingRepository interface {
	// Create persists a new pending row. Returns shared.ErrAlreadyExists
	// when a row for (listing, platform) is already present.
	Create(ctx context.Context, p *PlatformListing) error

	// FindByListingAndPlatform returns the row or shared.ErrNotFound
	FindByListingAndPlatform(ctx context.Context, listingID uuid.UUID, platform PlatformCode) (*PlatformListing, error)

	// FindByListing returns all rows for one listing
	FindByListing(ctx context.Context, listingID uuid.UUID) ([]*PlatformListing, error)

	// FindByExternalID resolves a platform-assigned listing ID back to a row
	FindByExternalID(ctx context.Context, platform PlatformCode, externalID string) (*PlatformListing, error)

	// UpdateWithCAS persists the row only if the stored status and attempt
	// count still match the expected values. Zero rows affected means a
	// concurrent writer won and shared.ErrConcurrencyConflict is returned.
	UpdateWithCAS(ctx context.Context, p *PlatformListing, expectedStatus PostingStatus, expectedAttempts int) error

	// FindRetryable returns failed rows below the retry ceiling
	FindRetryable(ctx context.Context, ceiling, limit int) ([]*PlatformListing, error)

	// FindCancelDue returns rows whose scheduled cancellation is due
	FindCancelDue(ctx context.Context, now time.Time, limit int) ([]*PlatformListing, error)
}
