package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
)

// Backend type constants.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendS3     = "s3"
)

// NewObjectStore creates an object store based on the configuration.
// Supported backends: "file" (default), "memory", "s3".
// The S3 bucket is created when missing.
func NewObjectStore(ctx context.Context, logger *common.Logger, config *common.StorageConfig) (interfaces.ObjectStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendFile
	}

	urls := PublicURLBuilder{
		Style:   config.PublicURLStyle,
		BaseURL: config.PublicBaseURL,
		Bucket:  config.Bucket,
		Region:  config.Region,
	}

	switch backend {
	case BackendFile:
		return NewFileObjectStore(logger, config.File.BasePath, config.Bucket, urls)

	case BackendMemory:
		return NewMemoryObjectStore(config.Bucket, urls), nil

	case BackendS3:
		if urls.Style == "" || (urls.Style == URLStylePath && urls.BaseURL == "") {
			urls.Style = URLStyleS3
		}
		store, err := NewS3ObjectStore(logger, config, urls)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, memory, s3)", backend)
	}
}
