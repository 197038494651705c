package models

import (
	"encoding/json"
	"time"

	"github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ListingModel is the persistence model for the UnifiedListing aggregate.
type ListingModel struct {
	AggregateModel
	Title           string                `gorm:"type:varchar(200);not null"`
	Description     string                `gorm:"type:text"`
	Price           decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Condition       listing.Condition     `gorm:"type:varchar(20);not null"`
	PhotosJSON      string                `gorm:"type:jsonb;column:photos"`
	CollectibleRef  *string               `gorm:"type:varchar(100)"`
	AcquisitionCost *decimal.Decimal      `gorm:"type:decimal(18,2)"`
	StorageLocation string                `gorm:"type:varchar(100)"`
	Status          listing.ListingStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	SoldPlatform    string                `gorm:"type:varchar(20)"`
	SoldPrice       *decimal.Decimal      `gorm:"type:decimal(18,2)"`
	SoldAt          *time.Time            `gorm:"index"`
}

// TableName returns the table name for GORM
func (ListingModel) TableName() string {
	return "listings"
}

// ToDomain converts the persistence model to a domain UnifiedListing.
func (m *ListingModel) ToDomain() *listing.UnifiedListing {
	l := &listing.UnifiedListing{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		Title:           m.Title,
		Description:     m.Description,
		Price:           m.Price,
		Condition:       m.Condition,
		Photos:          []string{},
		CollectibleRef:  m.CollectibleRef,
		AcquisitionCost: m.AcquisitionCost,
		StorageLocation: m.StorageLocation,
		Status:          m.Status,
		SoldPlatform:    m.SoldPlatform,
		SoldPrice:       m.SoldPrice,
		SoldAt:          m.SoldAt,
	}

	if m.PhotosJSON != "" {
		var photos []string
		if err := json.Unmarshal([]byte(m.PhotosJSON), &photos); err == nil {
			l.Photos = photos
		}
	}

	return l
}

// FromDomain populates the persistence model from a domain UnifiedListing.
func (m *ListingModel) FromDomain(l *listing.UnifiedListing) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.Title = l.Title
	m.Description = l.Description
	m.Price = l.Price
	m.Condition = l.Condition
	m.CollectibleRef = l.CollectibleRef
	m.AcquisitionCost = l.AcquisitionCost
	m.StorageLocation = l.StorageLocation
	m.Status = l.Status
	m.SoldPlatform = l.SoldPlatform
	m.SoldPrice = l.SoldPrice
	m.SoldAt = l.SoldAt

	if len(l.Photos) > 0 {
		if jsonBytes, err := json.Marshal(l.Photos); err == nil {
			m.PhotosJSON = string(jsonBytes)
		}
	} else {
		m.PhotosJSON = "[]"
	}
}

// ListingModelFromDomain creates a new persistence model from a domain UnifiedListing.
func ListingModelFromDomain(l *listing.UnifiedListing) *ListingModel {
	m := &ListingModel{}
	m.FromDomain(l)
	return m
}
