package listing

import (
	"strings"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ListingStatus represents the lifecycle status of a unified listing
type ListingStatus string

const (
	ListingStatusDraft    ListingStatus = "draft"
	ListingStatusListed   ListingStatus = "listed"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusArchived ListingStatus = "archived"
)

// Condition represents the physical condition of the item being sold
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// IsValid returns true if the condition is a known value
func (c Condition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	default:
		return false
	}
}

const maxTitleLength = 200

// UnifiedListing is the single source of truth for an item being sold.
// Platform-specific posting state lives in the sync domain; this aggregate
// only tracks the item itself and its overall sale lifecycle.
type UnifiedListing struct {
	shared.BaseAggregateRoot
	Title           string           `gorm:"type:varchar(200);not null"`
	Description     string           `gorm:"type:text"`
	Price           decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Condition       Condition        `gorm:"type:varchar(20);not null"`
	Photos          []string         `gorm:"-"` // persisted as jsonb by the model layer, order is meaningful
	CollectibleRef  *string          `gorm:"type:varchar(100)"`
	AcquisitionCost *decimal.Decimal `gorm:"type:decimal(18,2)"`
	StorageLocation string           `gorm:"type:varchar(100)"`
	Status          ListingStatus    `gorm:"type:varchar(20);not null;default:'draft'"`
	SoldPlatform    string           `gorm:"type:varchar(20)"`
	SoldPrice       *decimal.Decimal `gorm:"type:decimal(18,2)"`
	SoldAt          *time.Time
}

// TableName returns the table name for GORM
func (UnifiedListing) TableName() string {
	return "listings"
}

// NewUnifiedListing creates a new draft listing
func NewUnifiedListing(title, description string, price decimal.Decimal, condition Condition, photos []string) (*UnifiedListing, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if price.IsNegative() || price.IsZero() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price must be positive")
	}
	if !condition.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONDITION", "Unknown item condition")
	}

	l := &UnifiedListing{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             strings.TrimSpace(title),
		Description:       description,
		Price:             price,
		Condition:         condition,
		Photos:            photos,
		Status:            ListingStatusDraft,
	}

	l.AddDomainEvent(NewListingCreatedEvent(l))

	return l, nil
}

// Update updates the listing's basic information
func (l *UnifiedListing) Update(title, description string, price decimal.Decimal) error {
	if l.Status == ListingStatusSold || l.Status == ListingStatusArchived {
		return shared.ErrInvalidState
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	if price.IsNegative() || price.IsZero() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be positive")
	}

	l.Title = strings.TrimSpace(title)
	l.Description = description
	l.Price = price
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// SetAcquisitionCost records what the operator paid for the item
func (l *UnifiedListing) SetAcquisitionCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Acquisition cost cannot be negative")
	}
	l.AcquisitionCost = &cost
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// SetCollectibleRef links the listing to an external collectible catalog entry
func (l *UnifiedListing) SetCollectibleRef(ref string) {
	if ref == "" {
		l.CollectibleRef = nil
	} else {
		l.CollectibleRef = &ref
	}
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// SetStorageLocation records where the physical item is kept
func (l *UnifiedListing) SetStorageLocation(location string) {
	l.StorageLocation = location
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// SetPhotos replaces the ordered photo set
func (l *UnifiedListing) SetPhotos(photos []string) {
	l.Photos = photos
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// MarkListed transitions the listing into the listed state after at least
// one platform posting succeeded. Idempotent.
func (l *UnifiedListing) MarkListed() error {
	switch l.Status {
	case ListingStatusListed:
		return nil
	case ListingStatusDraft:
		l.Status = ListingStatusListed
		l.UpdatedAt = time.Now()
		l.IncrementVersion()
		return nil
	default:
		return shared.ErrInvalidState
	}
}

// MarkSold records the sale. Idempotent: marking an already-sold listing
// is a no-op regardless of the platform or price supplied.
func (l *UnifiedListing) MarkSold(platform string, price decimal.Decimal, at time.Time) error {
	if l.Status == ListingStatusSold {
		return nil
	}
	if l.Status == ListingStatusArchived {
		return shared.ErrInvalidState
	}

	l.Status = ListingStatusSold
	l.SoldPlatform = platform
	l.SoldPrice = &price
	l.SoldAt = &at
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewListingSoldEvent(l, platform, price))

	return nil
}

// Archive removes the listing from active inventory. Idempotent.
func (l *UnifiedListing) Archive() error {
	if l.Status == ListingStatusArchived {
		return nil
	}

	l.Status = ListingStatusArchived
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewListingArchivedEvent(l))

	return nil
}

// IsSold returns true once the listing has been sold on any platform
func (l *UnifiedListing) IsSold() bool {
	return l.Status == ListingStatusSold
}

// Profit returns sold price minus acquisition cost, before platform fees.
// Returns zero and false when the listing is not sold or has no recorded cost.
func (l *UnifiedListing) Profit() (decimal.Decimal, bool) {
	if l.SoldPrice == nil || l.AcquisitionCost == nil {
		return decimal.Zero, false
	}
	return l.SoldPrice.Sub(*l.AcquisitionCost), true
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title is required")
	}
	if len(title) > maxTitleLength {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	return nil
}
