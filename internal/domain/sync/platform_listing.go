package sync

import (
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PlatformListing tracks one unified listing on one marketplace platform.
// There is exactly one row per (listing, platform) pair; re-posting after a
// failure reuses the row and bumps the attempt count.
type PlatformListing struct {
	shared.BaseEntity
	ListingID         uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_platform_listing,priority:1"`
	Platform          PlatformCode  `gorm:"type:varchar(20);not null;uniqueIndex:idx_platform_listing,priority:2"`
	Status            PostingStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ExternalID        string        `gorm:"type:varchar(100);index"`
	AttemptCount      int           `gorm:"not null;default:0"`
	LastAttemptAt     *time.Time
	LastError         string `gorm:"type:text"`
	CancelScheduledAt *time.Time
	Version           int `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (PlatformListing) TableName() string {
	return "platform_listings"
}

// NewPlatformListing creates a pending row for a listing on a platform
func NewPlatformListing(listingID uuid.UUID, platform PlatformCode) (*PlatformListing, error) {
	if listingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LISTING_ID", "Listing ID is required")
	}
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown platform code")
	}

	return &PlatformListing{
		BaseEntity: shared.NewBaseEntity(),
		ListingID:  listingID,
		Platform:   platform,
		Status:     PostingStatusPending,
	}, nil
}

// RecordAttempt notes that an adapter call is being made right now.
// Every post or retry bumps the attempt count exactly once.
func (p *PlatformListing) RecordAttempt(at time.Time) {
	p.AttemptCount++
	p.LastAttemptAt = &at
}

// MarkActive records a successful post with the platform-assigned ID
func (p *PlatformListing) MarkActive(externalID string) error {
	if p.Status != PostingStatusPending && p.Status != PostingStatusFailed {
		return shared.ErrInvalidState
	}
	if externalID == "" {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "Platform listing ID is required")
	}

	p.Status = PostingStatusActive
	p.ExternalID = externalID
	p.LastError = ""
	p.touch()

	return nil
}

// MarkFailed records a failed post attempt with the error detail
func (p *PlatformListing) MarkFailed(errDetail string) error {
	if p.Status != PostingStatusPending && p.Status != PostingStatusFailed {
		return shared.ErrInvalidState
	}

	p.Status = PostingStatusFailed
	p.LastError = errDetail
	p.touch()

	return nil
}

// MarkSold records that the item sold on this platform
func (p *PlatformListing) MarkSold() error {
	if p.Status == PostingStatusSold {
		return nil
	}
	if p.Status.IsTerminal() {
		return shared.ErrInvalidState
	}

	p.Status = PostingStatusSold
	p.CancelScheduledAt = nil
	p.touch()

	return nil
}

// MarkCanceled takes down a row that never went live (pending/failed)
func (p *PlatformListing) MarkCanceled() error {
	if p.Status == PostingStatusCanceled {
		return nil
	}
	if !p.Status.CanCancel() {
		return shared.ErrInvalidState
	}

	p.Status = PostingStatusCanceled
	p.CancelScheduledAt = nil
	p.touch()

	return nil
}

// MarkDelisted takes down a live listing after the item sold elsewhere
func (p *PlatformListing) MarkDelisted() error {
	if p.Status == PostingStatusDelisted {
		return nil
	}
	if p.Status != PostingStatusActive {
		return shared.ErrInvalidState
	}

	p.Status = PostingStatusDelisted
	p.CancelScheduledAt = nil
	p.touch()

	return nil
}

// ScheduleCancel arranges for the row to be taken down at a later time
// instead of immediately. The sweep completes due cancellations.
func (p *PlatformListing) ScheduleCancel(at time.Time) error {
	if !p.Status.CanCancel() {
		return shared.ErrInvalidState
	}

	p.CancelScheduledAt = &at
	p.touch()

	return nil
}

// RecordCancelFailure keeps the row live but notes the failed takedown
// so an operator can follow up manually.
func (p *PlatformListing) RecordCancelFailure(errDetail string) {
	p.LastError = errDetail
	p.touch()
}

// IsRetryable returns true when a failed row is still below the retry ceiling
func (p *PlatformListing) IsRetryable(ceiling int) bool {
	return p.Status.CanRetry() && p.AttemptCount < ceiling
}

// IsExhausted returns true when a failed row has reached the retry ceiling
func (p *PlatformListing) IsExhausted(ceiling int) bool {
	return p.Status == PostingStatusFailed && p.AttemptCount >= ceiling
}

func (p *PlatformListing) touch() {
	p.UpdatedAt = time.Now()
	p.Version++
}
