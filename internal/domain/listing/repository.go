package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter holds filtering and pagination options for listing queries
type ListFilter struct {
	Status    ListingStatus
	Condition Condition
	Keyword   string // matches title, case-insensitive
	Page      int
	PageSize  int
}

// Repository defines the persistence interface for unified listings
type Repository interface {
	// Save persists a new listing
	Save(ctx context.Context, l *UnifiedListing) error

	// Update persists changes to an existing listing with optimistic locking.
	// Returns shared.ErrConcurrencyConflict when the stored version moved on.
	Update(ctx context.Context, l *UnifiedListing) error

	// FindByID returns the listing or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*UnifiedListing, error)

	// List returns listings matching the filter plus the total count
	List(ctx context.Context, filter ListFilter) ([]*UnifiedListing, int64, error)

	// FindSoldBefore returns sold, not yet archived listings whose sale
	// happened before the cutoff. Used by the archival sweep.
	FindSoldBefore(ctx context.Context, cutoff time.Time, limit int) ([]*UnifiedListing, error)

	// Delete removes a draft listing. Non-draft listings are archived, not deleted.
	Delete(ctx context.Context, id uuid.UUID) error
}
