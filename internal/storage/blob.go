// Package storage provides object persistence for normalized documents with pluggable backends.
package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
)

// Common errors for object storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidLocator = errors.New("invalid storage locator")
	ErrEmptyKey       = errors.New("object key is empty")
)

// Default content type for stored documents.
const DefaultContentType = "application/pdf"

var (
	_ interfaces.ObjectStore = (*FileObjectStore)(nil)
	_ interfaces.ObjectStore = (*MemoryObjectStore)(nil)
	_ interfaces.ObjectStore = (*S3ObjectStore)(nil)
)

// Upload stores data under key and reports success.
// Failures are logged; callers treat false as skip-this-document.
func Upload(ctx context.Context, store interfaces.ObjectStore, logger *common.Logger, data []byte, key, contentType string) bool {
	if len(data) == 0 {
		logger.Warn().Str("key", key).Msg("Refusing to upload empty document")
		return false
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	if err := store.Put(ctx, key, data, contentType); err != nil {
		logger.Warn().Err(err).Str("key", key).Str("bucket", store.Bucket()).Msg("Upload failed")
		return false
	}
	logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Uploaded document")
	return true
}

// Download fetches the object stored under key.
// The boolean is false when the object is missing or unreadable.
func Download(ctx context.Context, store interfaces.ObjectStore, logger *common.Logger, key string) ([]byte, bool) {
	data, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Str("bucket", store.Bucket()).Msg("Download failed")
		return nil, false
	}
	return data, true
}

// ContentTypeForKey guesses a MIME type from the key's extension.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case "", ".pdf":
		return DefaultContentType
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// validateKey rejects keys that cannot name an object.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
