package persistence

import (
	"context"

	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/crosspost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ensure GormSyncLogRepository implements sync.SyncLogRepository
var _ syncdomain.SyncLogRepository = (*GormSyncLogRepository)(nil)

// GormSyncLogRepository is the GORM implementation of the append-only
// sync audit trail
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append writes one audit entry. Entries are never updated or deleted.
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *syncdomain.SyncLogEntry) error {
	model := models.SyncLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByListing returns the most recent entries for a listing
func (r *GormSyncLogRepository) FindByListing(ctx context.Context, listingID uuid.UUID, limit int) ([]*syncdomain.SyncLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.SyncLogModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSyncLogEntries(rows), nil
}

// Find returns entries matching the filter plus the total count
func (r *GormSyncLogRepository) Find(ctx context.Context, filter syncdomain.SyncLogFilter) ([]*syncdomain.SyncLogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})

	if filter.ListingID != nil {
		query = query.Where("listing_id = ?", *filter.ListingID)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Result != "" {
		query = query.Where("result = ?", filter.Result)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
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
		pageSize = 50
	}

	var rows []models.SyncLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainSyncLogEntries(rows), total, nil
}

func toDomainSyncLogEntries(rows []models.SyncLogModel) []*syncdomain.SyncLogEntry {
	out := make([]*syncdomain.SyncLogEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
