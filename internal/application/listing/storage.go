package listing

import (
	"context"
	"time"
)

// ObjectStorageService abstracts photo storage. Implemented by the S3
// storage in the infrastructure layer; uploads go through presigned URLs
// so photo bytes never pass through this service.
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	// Returns the upload URL and expiration time
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	// Returns the download URL and expiration time
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}
