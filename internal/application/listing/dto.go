package listing

import (
	"time"

	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateListingRequest carries the fields needed to draft a listing
type CreateListingRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	Condition       string           `json:"condition"`
	Photos          []string         `json:"photos"`
	CollectibleRef  string           `json:"collectible_ref"`
	AcquisitionCost *decimal.Decimal `json:"acquisition_cost"`
	StorageLocation string           `json:"storage_location"`
}

// UpdateListingRequest carries mutable listing fields
type UpdateListingRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	Photos          []string         `json:"photos"`
	AcquisitionCost *decimal.Decimal `json:"acquisition_cost"`
	StorageLocation *string          `json:"storage_location"`
}

// ListingDTO is the outward representation of a unified listing
type ListingDTO struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	Condition       string           `json:"condition"`
	Photos          []string         `json:"photos"`
	CollectibleRef  *string          `json:"collectible_ref,omitempty"`
	AcquisitionCost *decimal.Decimal `json:"acquisition_cost,omitempty"`
	StorageLocation string           `json:"storage_location,omitempty"`
	Status          string           `json:"status"`
	SoldPlatform    string           `json:"sold_platform,omitempty"`
	SoldPrice       *decimal.Decimal `json:"sold_price,omitempty"`
	SoldAt          *time.Time       `json:"sold_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Version         int              `json:"version"`
}

// ToListingDTO maps the aggregate to its DTO
func ToListingDTO(l *listingdomain.UnifiedListing) *ListingDTO {
	return &ListingDTO{
		ID:              l.ID,
		Title:           l.Title,
		Description:     l.Description,
		Price:           l.Price,
		Condition:       string(l.Condition),
		Photos:          l.Photos,
		CollectibleRef:  l.CollectibleRef,
		AcquisitionCost: l.AcquisitionCost,
		StorageLocation: l.StorageLocation,
		Status:          string(l.Status),
		SoldPlatform:    l.SoldPlatform,
		SoldPrice:       l.SoldPrice,
		SoldAt:          l.SoldAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		Version:         l.GetVersion(),
	}
}

// PhotoUploadRequest asks for a presigned upload slot for one photo
type PhotoUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// PhotoUploadResponse carries the presigned URL and the storage key the
// client must attach to the listing after uploading
type PhotoUploadResponse struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ArchiveSweepResult reports one archival pass over old sold listings
type ArchiveSweepResult struct {
	Scanned  int `json:"scanned"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}
