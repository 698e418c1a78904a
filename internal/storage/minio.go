package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bobmcallan/insight/internal/common"
)

// S3ObjectStore implements ObjectStore against AWS S3 or any S3-compatible
// service (MinIO, R2, Supabase storage) through minio-go.
type S3ObjectStore struct {
	client *minio.Client
	bucket string
	urls   PublicURLBuilder
	logger *common.Logger
}

// NewS3ObjectStore creates an S3-backed store from the storage config.
// An empty endpoint targets AWS in the configured region.
func NewS3ObjectStore(logger *common.Logger, cfg *common.StorageConfig, urls PublicURLBuilder) (*S3ObjectStore, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	if endpoint == "" {
		endpoint = "s3." + cfg.Region + ".amazonaws.com"
		secure = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	urls.Bucket = cfg.Bucket
	urls.Region = cfg.Region
	urls.Endpoint = cfg.Endpoint
	urls.UseSSL = cfg.UseSSL

	logger.Debug().Str("endpoint", endpoint).Str("bucket", cfg.Bucket).Msg("S3ObjectStore initialized")

	return &S3ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		urls:   urls,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info().Str("bucket", s.bucket).Msg("Created bucket")
	}

	return nil
}

// Put uploads an object.
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// Get downloads an object.
func (s *S3ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translateError(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translateError(key, err)
	}
	return data, nil
}

// Exists checks if an object exists.
func (s *S3ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s: %w", key, err)
}

// Delete removes an object. No error if not found.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Bucket returns the bucket name.
func (s *S3ObjectStore) Bucket() string { return s.bucket }

// Locator returns the s3://bucket/key address of key.
func (s *S3ObjectStore) Locator(key string) string {
	return FormatLocator("s3", s.bucket, key)
}

// PublicURL returns a public URL for the object (if bucket policy allows)
func (s *S3ObjectStore) PublicURL(key string) string {
	return s.urls.URL(key)
}

// Close releases resources (no-op; minio clients hold no persistent connections).
func (s *S3ObjectStore) Close() error {
	return nil
}

func (s *S3ObjectStore) translateError(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("failed to read object %s: %w", key, err)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
