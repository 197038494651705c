// Package storage holds the object storage backends for listing
// photos. Photos are uploaded by the client through presigned URLs;
// the backend only hands out URLs and checks the objects afterwards.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	listingapp "github.com/crosspost/backend/internal/application/listing"
	infraconfig "github.com/crosspost/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ listingapp.ObjectStorageService = (*S3PhotoStorage)(nil)

const defaultPresignExpiry = 15 * time.Minute

var errEmptyKey = errors.New("storage key is required")

// S3PhotoStorage stores listing photos in an S3 bucket. Any
// S3-compatible backend works: an explicit endpoint targets MinIO or
// similar, an empty one plain AWS S3.
type S3PhotoStorage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	logger        *zap.Logger
}

// S3PhotoStorageOption configures an S3PhotoStorage
type S3PhotoStorageOption func(*S3PhotoStorage)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3PhotoStorageOption {
	return func(s *S3PhotoStorage) {
		s.logger = logger
	}
}

// WithPresignExpiration sets how long presigned URLs stay valid
func WithPresignExpiration(d time.Duration) S3PhotoStorageOption {
	return func(s *S3PhotoStorage) {
		if d > 0 {
			s.presignExpiry = d
		}
	}
}

// NewS3PhotoStorage builds the photo store from configuration.
func NewS3PhotoStorage(cfg *infraconfig.StorageConfig, opts ...S3PhotoStorageOption) (*S3PhotoStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3PhotoStorage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiry <= 0 {
		store.presignExpiry = defaultPresignExpiry
	}

	return store, nil
}

func normalizeEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the photo bucket if it is missing. Called once
// at startup.
func (s *S3PhotoStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("check bucket: %w", err)
	}

	s.logger.Info("Creating photo bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		// Lost a creation race to another instance
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}

	s.logger.Info("Photo bucket created", zap.String("bucket", s.bucket))
	return nil
}

// GenerateUploadURL presigns a PUT for the client to upload one photo.
func (s *S3PhotoStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiry
	}

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(storageKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign upload: %w", err)
	}

	return req.URL, time.Now().Add(expiresIn), nil
}

// GenerateDownloadURL presigns a GET for serving a photo.
func (s *S3PhotoStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign download: %w", err)
	}

	return req.URL, time.Now().Add(expiresIn), nil
}

// DeleteObject removes a photo, e.g. when its listing is deleted.
func (s *S3PhotoStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errEmptyKey
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ObjectExists reports whether a photo was actually uploaded, used to
// confirm a presigned upload before attaching it to a listing.
func (s *S3PhotoStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errEmptyKey
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	// Some S3-compatible backends report the miss as a plain API error
	if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
		return false, nil
	}
	return false, fmt.Errorf("check object: %w", err)
}
