package models

import (
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/google/uuid"
)

// PlatformListingModel is the persistence model for per-platform posting state.
type PlatformListingModel struct {
	BaseModel
	ListingID         uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_platform_listing,priority:1;index"`
	Platform          syncdomain.PlatformCode  `gorm:"type:varchar(20);not null;uniqueIndex:idx_platform_listing,priority:2"`
	Status            syncdomain.PostingStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ExternalID        string                   `gorm:"type:varchar(100);index:idx_platform_external"`
	AttemptCount      int                      `gorm:"not null;default:0"`
	LastAttemptAt     *time.Time
	LastError         string     `gorm:"type:text"`
	CancelScheduledAt *time.Time `gorm:"index"`
	Version           int        `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (PlatformListingModel) TableName() string {
	return "platform_listings"
}

// ToDomain converts the persistence model to a domain PlatformListing.
func (m *PlatformListingModel) ToDomain() *syncdomain.PlatformListing {
	return &syncdomain.PlatformListing{
		BaseEntity:        m.BaseModel.ToDomain(),
		ListingID:         m.ListingID,
		Platform:          m.Platform,
		Status:            m.Status,
		ExternalID:        m.ExternalID,
		AttemptCount:      m.AttemptCount,
		LastAttemptAt:     m.LastAttemptAt,
		LastError:         m.LastError,
		CancelScheduledAt: m.CancelScheduledAt,
		Version:           m.Version,
	}
}

// FromDomain populates the persistence model from a domain PlatformListing.
func (m *PlatformListingModel) FromDomain(p *syncdomain.PlatformListing) {
	m.FromDomainBaseEntity(shared.BaseEntity{ID: p.ID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt})
	m.ListingID = p.ListingID
	m.Platform = p.Platform
	m.Status = p.Status
	m.ExternalID = p.ExternalID
	m.AttemptCount = p.AttemptCount
	m.LastAttemptAt = p.LastAttemptAt
	m.LastError = p.LastError
	m.CancelScheduledAt = p.CancelScheduledAt
	m.Version = p.Version
}

// PlatformListingModelFromDomain creates a new persistence model from a domain PlatformListing.
func PlatformListingModelFromDomain(p *syncdomain.PlatformListing) *PlatformListingModel {
	m := &PlatformListingModel{}
	m.FromDomain(p)
	return m
}

// SyncLogModel is the persistence model for the append-only sync audit trail.
type SyncLogModel struct {
	ID          uuid.UUID                `gorm:"type:uuid;primary_key"`
	ListingID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	Platform    syncdomain.PlatformCode  `gorm:"type:varchar(20);not null"`
	Operation   syncdomain.SyncOperation `gorm:"type:varchar(20);not null"`
	Result      syncdomain.SyncResult    `gorm:"type:varchar(10);not null"`
	ErrorDetail string                   `gorm:"type:text"`
	CreatedAt   time.Time                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_log"
}

// ToDomain converts the persistence model to a domain SyncLogEntry.
func (m *SyncLogModel) ToDomain() *syncdomain.SyncLogEntry {
	return &syncdomain.SyncLogEntry{
		ID:          m.ID,
		ListingID:   m.ListingID,
		Platform:    m.Platform,
		Operation:   m.Operation,
		Result:      m.Result,
		ErrorDetail: m.ErrorDetail,
		CreatedAt:   m.CreatedAt,
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain SyncLogEntry.
func SyncLogModelFromDomain(e *syncdomain.SyncLogEntry) *SyncLogModel {
	return &SyncLogModel{
		ID:          e.ID,
		ListingID:   e.ListingID,
		Platform:    e.Platform,
		Operation:   e.Operation,
		Result:      e.Result,
		ErrorDetail: e.ErrorDetail,
		CreatedAt:   e.CreatedAt,
	}
}
