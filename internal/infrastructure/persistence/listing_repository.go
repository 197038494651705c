package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/crosspost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ensure GormListingRepository implements listing.Repository
var _ listing.Repository = (*GormListingRepository)(nil)

// GormListingRepository is the GORM implementation of the listing repository
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// Save persists a new listing
func (r *GormListingRepository) Save(ctx context.Context, l *listing.UnifiedListing) error {
	model := models.ListingModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes with optimistic locking on the version column
func (r *GormListingRepository) Update(ctx context.Context, l *listing.UnifiedListing) error {
	model := models.ListingModelFromDomain(l)

	result := r.db.WithContext(ctx).
		Model(&models.ListingModel{}).
		Where("id = ? AND version = ?", l.ID, l.GetVersion()-1).
		Updates(map[string]interface{}{
			"title":            model.Title,
			"description":      model.Description,
			"price":            model.Price,
			"condition":        model.Condition,
			"photos":           model.PhotosJSON,
			"collectible_ref":  model.CollectibleRef,
			"acquisition_cost": model.AcquisitionCost,
			"storage_location": model.StorageLocation,
			"status":           model.Status,
			"sold_platform":    model.SoldPlatform,
			"sold_price":       model.SoldPrice,
			"sold_at":          model.SoldAt,
			"updated_at":       model.UpdatedAt,
			"version":          model.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID returns the listing or shared.ErrNotFound
func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.UnifiedListing, error) {
	var model models.ListingModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns listings matching the filter plus the total count
func (r *GormListingRepository) List(ctx context.Context, filter listing.ListFilter) ([]*listing.UnifiedListing, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ListingModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Condition != "" {
		query = query.Where("condition = ?", filter.Condition)
	}
	if filter.Keyword != "" {
		query = query.Where("title ILIKE ?", "%"+escapeLikePattern(filter.Keyword)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var rows []models.ListingModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	listings := make([]*listing.UnifiedListing, len(rows))
	for i := range rows {
		listings[i] = rows[i].ToDomain()
	}
	return listings, total, nil
}

// FindSoldBefore returns sold, unarchived listings older than the cutoff
func (r *GormListingRepository) FindSoldBefore(ctx context.Context, cutoff time.Time, limit int) ([]*listing.UnifiedListing, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []models.ListingModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND sold_at < ?", listing.ListingStatusSold, cutoff).
		Order("sold_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	listings := make([]*listing.UnifiedListing, len(rows))
	for i := range rows {
		listings[i] = rows[i].ToDomain()
	}
	return listings, nil
}

// Delete removes a listing row
func (r *GormListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ListingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// escapeLikePattern escapes LIKE wildcards in user input
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isDuplicateKey reports whether the error is a unique constraint violation
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
