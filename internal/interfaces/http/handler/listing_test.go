package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	listingapp "github.com/crosspost/backend/internal/application/listing"
	listingdomain "github.com/crosspost/backend/internal/domain/listing"
	"github.com/crosspost/backend/internal/domain/shared"
	"github.com/crosspost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockListingRepository implements listingdomain.Repository for testing
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Save(ctx context.Context, l *listingdomain.UnifiedListing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) Update(ctx context.Context, l *listingdomain.UnifiedListing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listingdomain.UnifiedListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingdomain.UnifiedListing), args.Error(1)
}

func (m *MockListingRepository) List(ctx context.Context, filter listingdomain.ListFilter) ([]*listingdomain.UnifiedListing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*listingdomain.UnifiedListing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingRepository) FindSoldBefore(ctx context.Context, cutoff time.Time, limit int) ([]*listingdomain.UnifiedListing, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listingdomain.UnifiedListing), args.Error(1)
}

func (m *MockListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubStorage implements listingapp.ObjectStorageService for testing
type stubStorage struct{}

func (s *stubStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://storage.test/upload/" + storageKey, time.Now().Add(expiresIn), nil
}

func (s *stubStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://storage.test/download/" + storageKey, time.Now().Add(expiresIn), nil
}

func (s *stubStorage) DeleteObject(ctx context.Context, storageKey string) error {
	return nil
}

func (s *stubStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	return true, nil
}

func newTestListing(t *testing.T) *listingdomain.UnifiedListing {
	t.Helper()
	l, err := listingdomain.NewUnifiedListing(
		"Charizard Holo 4/102",
		"Base Set unlimited",
		decimal.NewFromFloat(249.99),
		listingdomain.ConditionGood,
		[]string{"listings/x/front.jpg"},
	)
	require.NoError(t, err)
	return l
}

func setupListingRouter(repo listingdomain.Repository, storage listingapp.ObjectStorageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := listingapp.NewService(repo, storage, nil)
	h := NewListingHandler(svc)

	router := gin.New()
	router.POST("/listings", h.Create)
	router.GET("/listings", h.List)
	router.GET("/listings/:id", h.GetByID)
	router.PUT("/listings/:id", h.Update)
	router.DELETE("/listings/:id", h.Delete)
	router.POST("/listings/:id/archive", h.Archive)
	router.POST("/listings/:id/photos", h.RequestPhotoUpload)
	router.GET("/listings/:id/photos/url", h.PhotoDownloadURL)
	return router
}

func TestListingHandler_Create(t *testing.T) {
	t.Run("creates a draft listing", func(t *testing.T) {
		repo := new(MockListingRepository)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		router := setupListingRouter(repo, nil)

		body := `{
			"title": "Charizard Holo 4/102",
			"description": "Base Set unlimited",
			"price": 249.99,
			"condition": "good",
			"acquisition_cost": 120.00,
			"storage_location": "binder-3/page-12"
		}`
		req := httptest.NewRequest("POST", "/listings", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "Charizard Holo 4/102", data["title"])
		assert.Equal(t, "draft", data["status"])

		repo.AssertExpectations(t)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, nil)

		body := `{"price": 10, "condition": "good"}`
		req := httptest.NewRequest("POST", "/listings", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "Save")
	})

	t.Run("rejects unknown condition", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, nil)

		body := `{"title": "x", "price": 10, "condition": "mint"}`
		req := httptest.NewRequest("POST", "/listings", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListingHandler_GetByID(t *testing.T) {
	t.Run("returns the listing", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)

		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("GET", "/listings/"+l.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, l.ID.String(), data["id"])
	})

	t.Run("returns 404 for unknown listing", func(t *testing.T) {
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("GET", "/listings/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 for malformed ID", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("GET", "/listings/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListingHandler_List(t *testing.T) {
	t.Run("returns paginated listings", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("List", mock.Anything, mock.MatchedBy(func(f listingdomain.ListFilter) bool {
			return f.Status == listingdomain.ListingStatusDraft && f.Page == 1 && f.PageSize == 20
		})).Return([]*listingdomain.UnifiedListing{l}, int64(1), nil)

		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("GET", "/listings?status=draft", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Equal(t, 20, resp.Meta.PageSize)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("GET", "/listings?status=bogus", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListingHandler_Update(t *testing.T) {
	t.Run("updates an unsold listing", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)
		repo.On("Update", mock.Anything, l).Return(nil)

		router := setupListingRouter(repo, nil)

		body := `{"title": "Charizard Holo 4/102 PSA-ready", "description": "Updated", "price": 229.99}`
		req := httptest.NewRequest("PUT", "/listings/"+l.ID.String(), bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "Charizard Holo 4/102 PSA-ready", data["title"])
	})

	t.Run("returns 409 on concurrent modification", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)
		repo.On("Update", mock.Anything, l).Return(shared.ErrConcurrencyConflict)

		router := setupListingRouter(repo, nil)

		body := `{"title": "x", "price": 10}`
		req := httptest.NewRequest("PUT", "/listings/"+l.ID.String(), bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestListingHandler_Archive(t *testing.T) {
	l := newTestListing(t)
	repo := new(MockListingRepository)
	repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)
	repo.On("Update", mock.Anything, l).Return(nil)

	router := setupListingRouter(repo, nil)

	req := httptest.NewRequest("POST", "/listings/"+l.ID.String()+"/archive", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestListingHandler_Delete(t *testing.T) {
	t.Run("deletes a draft", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)
		repo.On("Delete", mock.Anything, l.ID).Return(nil)

		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("DELETE", "/listings/"+l.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("returns 422 for a non-draft listing", func(t *testing.T) {
		l := newTestListing(t)
		require.NoError(t, l.MarkListed())

		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)

		router := setupListingRouter(repo, nil)

		req := httptest.NewRequest("DELETE", "/listings/"+l.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		repo.AssertNotCalled(t, "Delete")
	})
}

func TestListingHandler_RequestPhotoUpload(t *testing.T) {
	t.Run("issues a presigned upload URL", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)
		repo.On("FindByID", mock.Anything, l.ID).Return(l, nil)

		router := setupListingRouter(repo, &stubStorage{})

		body := `{"file_name": "front.jpg", "content_type": "image/jpeg"}`
		req := httptest.NewRequest("POST", "/listings/"+l.ID.String()+"/photos", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.NotEmpty(t, data["storage_key"])
		assert.Contains(t, data["upload_url"], "https://storage.test/upload/")
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		l := newTestListing(t)
		repo := new(MockListingRepository)

		router := setupListingRouter(repo, &stubStorage{})

		body := `{"file_name": "front.gif", "content_type": "image/gif"}`
		req := httptest.NewRequest("POST", "/listings/"+l.ID.String()+"/photos", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListingHandler_PhotoDownloadURL(t *testing.T) {
	t.Run("issues a presigned download URL", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, &stubStorage{})

		req := httptest.NewRequest("GET", "/listings/"+uuid.NewString()+"/photos/url?key=listings/x/front.jpg", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Contains(t, data["download_url"], "https://storage.test/download/")
	})

	t.Run("requires the storage key", func(t *testing.T) {
		repo := new(MockListingRepository)
		router := setupListingRouter(repo, &stubStorage{})

		req := httptest.NewRequest("GET", "/listings/"+uuid.NewString()+"/photos/url", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
