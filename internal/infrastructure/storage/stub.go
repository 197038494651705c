package storage

import (
	"context"
	"time"

	listingapp "github.com/crosspost/backend/internal/application/listing"
)

var _ listingapp.ObjectStorageService = (*StubPhotoStorage)(nil)

// StubPhotoStorage fakes photo storage for local development without
// an S3 backend. URLs point nowhere, deletes are no-ops, and every
// object "exists" so the upload confirmation flow can be exercised.
type StubPhotoStorage struct {
	BaseURL string
}

// NewStubPhotoStorage creates a stub photo store
func NewStubPhotoStorage() *StubPhotoStorage {
	return &StubPhotoStorage{BaseURL: "https://storage.example.com"}
}

func (s *StubPhotoStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}

func (s *StubPhotoStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}

func (s *StubPhotoStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errEmptyKey
	}
	return nil
}

func (s *StubPhotoStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errEmptyKey
	}
	return true, nil
}
