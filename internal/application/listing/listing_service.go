// Package listing provides application services for managing unified
// listings: the operator-facing CRUD surface, photo uploads, and archival
// of old sold inventory.
package listing

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultUploadURLExpiry = 15 * time.Minute
	// ArchiveAfterDefault is how long sold listings stay visible before the
	// archival sweep picks them up.
	ArchiveAfterDefault = 30 * 24 * time.Hour
)

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service manages the unified listing lifecycle
type Service struct {
	repo    listingdomain.Repository
	storage ObjectStorageService
	logger  *zap.Logger
}

// NewService creates a listing service
func NewService(repo listingdomain.Repository, storage ObjectStorageService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, storage: storage, logger: logger}
}

// Create drafts a new listing
func (s *Service) Create(ctx context.Context, req CreateListingRequest) (*ListingDTO, error) {
	l, err := listingdomain.NewUnifiedListing(req.Title, req.Description, req.Price, listingdomain.Condition(req.Condition), req.Photos)
	if err != nil {
		return nil, err
	}

	if req.CollectibleRef != "" {
		l.SetCollectibleRef(req.CollectibleRef)
	}
	if req.AcquisitionCost != nil {
		if err := l.SetAcquisitionCost(*req.AcquisitionCost); err != nil {
			return nil, err
		}
	}
	if req.StorageLocation != "" {
		l.SetStorageLocation(req.StorageLocation)
	}

	if err := s.repo.Save(ctx, l); err != nil {
		return nil, err
	}

	s.logger.Info("listing created",
		zap.String("listing_id", l.ID.String()),
		zap.String("title", l.Title),
	)

	return ToListingDTO(l), nil
}

// Update edits a listing that has not sold yet
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateListingRequest) (*ListingDTO, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.Update(req.Title, req.Description, req.Price); err != nil {
		return nil, err
	}
	if req.Photos != nil {
		l.SetPhotos(req.Photos)
	}
	if req.AcquisitionCost != nil {
		if err := l.SetAcquisitionCost(*req.AcquisitionCost); err != nil {
			return nil, err
		}
	}
	if req.StorageLocation != nil {
		l.SetStorageLocation(*req.StorageLocation)
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}

	return ToListingDTO(l), nil
}

// Get returns one listing
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToListingDTO(l), nil
}

// List returns listings matching the filter
func (s *Service) List(ctx context.Context, filter listingdomain.ListFilter) ([]*ListingDTO, int64, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]*ListingDTO, len(items))
	for i, l := range items {
		dtos[i] = ToListingDTO(l)
	}
	return dtos, total, nil
}

// Archive removes a listing from active inventory
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := l.Archive(); err != nil {
		return err
	}
	return s.repo.Update(ctx, l)
}

// Delete removes a draft. Anything past draft is archived instead so the
// audit trail keeps a referent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if l.Status != listingdomain.ListingStatusDraft {
		return shared.ErrInvalidState
	}
	return s.repo.Delete(ctx, id)
}

// RequestPhotoUpload issues a presigned upload URL for one photo
func (s *Service) RequestPhotoUpload(ctx context.Context, listingID uuid.UUID, req PhotoUploadRequest) (*PhotoUploadResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Photo storage is not configured")
	}

	ext, ok := allowedPhotoTypes[strings.ToLower(req.ContentType)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", shared.ErrInvalidInput, req.ContentType)
	}

	// Verify the listing exists before handing out a URL
	if _, err := s.repo.FindByID(ctx, listingID); err != nil {
		return nil, err
	}

	key := path.Join("listings", listingID.String(), uuid.NewString()+ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, defaultUploadURLExpiry)
	if err != nil {
		return nil, err
	}

	return &PhotoUploadResponse{StorageKey: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// PhotoDownloadURL issues a presigned download URL for a stored photo
func (s *Service) PhotoDownloadURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	if s.storage == nil {
		return "", time.Time{}, shared.NewDomainError("STORAGE_DISABLED", "Photo storage is not configured")
	}
	return s.storage.GenerateDownloadURL(ctx, storageKey, defaultUploadURLExpiry)
}

// ArchiveSoldBefore archives listings that sold before the cutoff. Run
// periodically by the sweeper; safe to invoke manually.
func (s *Service) ArchiveSoldBefore(ctx context.Context, cutoff time.Time, limit int) (*ArchiveSweepResult, error) {
	sold, err := s.repo.FindSoldBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	result := &ArchiveSweepResult{Scanned: len(sold)}
	for _, l := range sold {
		if err := l.Archive(); err != nil {
			result.Failed++
			continue
		}
		if err := s.repo.Update(ctx, l); err != nil {
			result.Failed++
			s.logger.Warn("failed to archive sold listing",
				zap.String("listing_id", l.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Archived++
	}

	if result.Scanned > 0 {
		s.logger.Info("archive sweep complete",
			zap.Int("scanned", result.Scanned),
			zap.Int("archived", result.Archived),
			zap.Int("failed", result.Failed),
		)
	}

	return result, nil
}
