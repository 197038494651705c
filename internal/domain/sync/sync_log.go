package sync

import (
	"context"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncOperation identifies what kind of sync action a log entry records
type SyncOperation string

const (
	SyncOperationPost     SyncOperation = "post"
	SyncOperationRetry    SyncOperation = "retry"
	SyncOperationCancel   SyncOperation = "cancel"
	SyncOperationMarkSold SyncOperation = "mark_sold"
)

// IsValid returns true if the operation is a known value
func (o SyncOperation) IsValid() bool {
	switch o {
	case SyncOperationPost, SyncOperationRetry, SyncOperationCancel, SyncOperationMarkSold:
		return true
	default:
		return false
	}
}

// SyncResult records whether a sync action succeeded
type SyncResult string

const (
	SyncResultSuccess SyncResult = "success"
	SyncResultFailure SyncResult = "failure"
)

// SyncLogEntry is one row in the append-only sync audit trail. Entries are
// never updated or deleted; every adapter attempt and every sold-state
// change produces exactly one entry.
type SyncLogEntry struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ListingID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Platform    PlatformCode  `gorm:"type:varchar(20);not null"`
	Operation   SyncOperation `gorm:"type:varchar(20);not null"`
	Result      SyncResult    `gorm:"type:varchar(10);not null"`
	ErrorDetail string        `gorm:"type:text"`
	CreatedAt   time.Time     `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogEntry) TableName() string {
	return "sync_log"
}

// NewSyncLogEntry creates an audit entry
func NewSyncLogEntry(listingID uuid.UUID, platform PlatformCode, op SyncOperation, result SyncResult, errDetail string) (*SyncLogEntry, error) {
	if listingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LISTING_ID", "Listing ID is required")
	}
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Unknown sync operation")
	}

	return &SyncLogEntry{
		ID:          uuid.New(),
		ListingID:   listingID,
		Platform:    platform,
		Operation:   op,
		Result:      result,
		ErrorDetail: errDetail,
		CreatedAt:   time.Now(),
	}, nil
}

// SyncLogFilter holds query options for reading the audit trail
type SyncLogFilter struct {
	ListingID *uuid.UUID
	Platform  PlatformCode
	Operation SyncOperation
	Result    SyncResult
	Since     *time.Time
	Page      int
	PageSize  int
}

// SyncLogRepository is the append-only persistence interface for the audit trail
type SyncLogRepository interface {
	// Append persists one entry. There is deliberately no update or delete.
	Append(ctx context.Context, entry *SyncLogEntry) error

	// FindByListing returns entries for one listing, newest first
	FindByListing(ctx context.Context, listingID uuid.UUID, limit int) ([]*SyncLogEntry, error)

	// Find returns entries matching the filter plus the total count, newest first
	Find(ctx context.Context, filter SyncLogFilter) ([]*SyncLogEntry, int64, error)
}
