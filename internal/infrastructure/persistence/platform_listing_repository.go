package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ensure GormPlatformListingRepository implements sync.PlatformListingRepository
var _ syncdomain.PlatformListingRepository = (*GormPlatformListingRepository)(nil)

// GormPlatformListingRepository is the GORM implementation of the
// per-platform posting state repository
type GormPlatformListingRepository struct {
	db *gorm.DB
}

// NewGormPlatformListingRepository creates a new GormPlatformListingRepository
func NewGormPlatformListingRepository(db *gorm.DB) *GormPlatformListingRepository {
	return &GormPlatformListingRepository{db: db}
}

// Create persists a new platform listing row. Returns shared.ErrAlreadyExists
// when a row for the same (listing, platform) pair already exists.
func (r *GormPlatformListingRepository) Create(ctx context.Context, p *syncdomain.PlatformListing) error {
	model := models.PlatformListingModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByListingAndPlatform returns the row or shared.ErrNotFound
func (r *GormPlatformListingRepository) FindByListingAndPlatform(ctx context.Context, listingID uuid.UUID, platform syncdomain.PlatformCode) (*syncdomain.PlatformListing, error) {
	var model models.PlatformListingModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND platform = ?", listingID, platform).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByListing returns all platform rows for a listing
func (r *GormPlatformListingRepository) FindByListing(ctx context.Context, listingID uuid.UUID) ([]*syncdomain.PlatformListing, error) {
	var rows []models.PlatformListingModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("platform ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainPlatformListings(rows), nil
}

// FindByExternalID resolves a platform's own listing identifier back to our row
func (r *GormPlatformListingRepository) FindByExternalID(ctx context.Context, platform syncdomain.PlatformCode, externalID string) (*syncdomain.PlatformListing, error) {
	var model models.PlatformListingModel
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_id = ?", platform, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateWithCAS persists the row only when the stored status and attempt count
// still match the values the caller read. A zero-row update means another
// writer got there first and surfaces as shared.ErrConcurrencyConflict.
func (r *GormPlatformListingRepository) UpdateWithCAS(ctx context.Context, p *syncdomain.PlatformListing, expectedStatus syncdomain.PostingStatus, expectedAttempts int) error {
	model := models.PlatformListingModelFromDomain(p)

	result := r.db.WithContext(ctx).
		Model(&models.PlatformListingModel{}).
		Where("id = ? AND status = ? AND attempt_count = ?", p.ID, expectedStatus, expectedAttempts).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"external_id":         model.ExternalID,
			"attempt_count":       model.AttemptCount,
			"last_attempt_at":     model.LastAttemptAt,
			"last_error":          model.LastError,
			"cancel_scheduled_at": model.CancelScheduledAt,
			"updated_at":          model.UpdatedAt,
			"version":             model.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindRetryable returns failed rows that have not yet hit the retry ceiling
func (r *GormPlatformListingRepository) FindRetryable(ctx context.Context, ceiling int, limit int) ([]*syncdomain.PlatformListing, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.PlatformListingModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempt_count < ?", syncdomain.PostingStatusFailed, ceiling).
		Order("last_attempt_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainPlatformListings(rows), nil
}

// FindCancelDue returns active rows whose scheduled takedown time has passed
func (r *GormPlatformListingRepository) FindCancelDue(ctx context.Context, now time.Time, limit int) ([]*syncdomain.PlatformListing, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.PlatformListingModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND cancel_scheduled_at IS NOT NULL AND cancel_scheduled_at <= ?", syncdomain.PostingStatusActive, now).
		Order("cancel_scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainPlatformListings(rows), nil
}

func toDomainPlatformListings(rows []models.PlatformListingModel) []*syncdomain.PlatformListing {
	out := make([]*syncdomain.PlatformListing, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
