package listing

import (
	"context"
	"testing"
	"time"

	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, l *listingdomain.UnifiedListing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, l *listingdomain.UnifiedListing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*listingdomain.UnifiedListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingdomain.UnifiedListing), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter listingdomain.ListFilter) ([]*listingdomain.UnifiedListing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*listingdomain.UnifiedListing), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) FindSoldBefore(ctx context.Context, cutoff time.Time, limit int) ([]*listingdomain.UnifiedListing, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listingdomain.UnifiedListing), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

func soldListing(t *testing.T, soldAgo time.Duration) *listingdomain.UnifiedListing {
	t.Helper()
	l, err := listingdomain.NewUnifiedListing("Old Item", "d", decimal.NewFromInt(20), listingdomain.ConditionGood, nil)
	require.NoError(t, err)
	require.NoError(t, l.MarkSold("ebay", decimal.NewFromInt(20), time.Now().Add(-soldAgo)))
	l.ClearDomainEvents()
	return l
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, nil)

	t.Run("valid request", func(t *testing.T) {
		repo.On("Save", mock.Anything, mock.AnythingOfType("*listing.UnifiedListing")).Return(nil).Once()
		cost := decimal.NewFromInt(8)

		dto, err := svc.Create(context.Background(), CreateListingRequest{
			Title:           "Sega Dreamcast",
			Description:     "with two controllers",
			Price:           decimal.NewFromInt(120),
			Condition:       "good",
			Photos:          []string{"listings/x/1.jpg"},
			AcquisitionCost: &cost,
			StorageLocation: "shelf B3",
		})

		require.NoError(t, err)
		assert.Equal(t, "Sega Dreamcast", dto.Title)
		assert.Equal(t, "draft", dto.Status)
		require.NotNil(t, dto.AcquisitionCost)
		assert.Equal(t, "shelf B3", dto.StorageLocation)
		repo.AssertExpectations(t)
	})

	t.Run("invalid condition", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateListingRequest{
			Title:     "Item",
			Price:     decimal.NewFromInt(10),
			Condition: "pristine",
		})
		assert.Error(t, err)
	})
}

func TestService_Delete_OnlyDrafts(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, nil)

	l := soldListing(t, time.Hour)
	repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)

	err := svc.Delete(context.Background(), l.ID)

	assert.ErrorIs(t, err, shared.ErrInvalidState)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_RequestPhotoUpload(t *testing.T) {
	repo := new(MockRepository)
	storage := new(MockStorage)
	svc := NewService(repo, storage, nil)

	l, err := listingdomain.NewUnifiedListing("Item", "d", decimal.NewFromInt(10), listingdomain.ConditionNew, nil)
	require.NoError(t, err)

	t.Run("issues presigned URL with generated key", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)
		expires := time.Now().Add(15 * time.Minute)
		storage.On("GenerateUploadURL", mock.Anything, mock.MatchedBy(func(key string) bool {
			return len(key) > 0
		}), "image/jpeg", 15*time.Minute).Return("https://s3/upload", expires, nil).Once()

		resp, err := svc.RequestPhotoUpload(context.Background(), l.ID, PhotoUploadRequest{
			FileName:    "front.jpg",
			ContentType: "image/jpeg",
		})

		require.NoError(t, err)
		assert.Equal(t, "https://s3/upload", resp.UploadURL)
		assert.Contains(t, resp.StorageKey, "listings/"+l.ID.String()+"/")
		assert.True(t, len(resp.StorageKey) > len("listings/")+36)
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		_, err := svc.RequestPhotoUpload(context.Background(), l.ID, PhotoUploadRequest{
			FileName:    "video.mp4",
			ContentType: "video/mp4",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_ArchiveSoldBefore(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, nil)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	oldSale := soldListing(t, 45*24*time.Hour)

	repo.On("FindSoldBefore", mock.Anything, cutoff, 100).Return([]*listingdomain.UnifiedListing{oldSale}, nil)
	repo.On("Update", mock.Anything, oldSale).Return(nil)

	result, err := svc.ArchiveSoldBefore(context.Background(), cutoff, 100)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, listingdomain.ListingStatusArchived, oldSale.Status)
}
