package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/insight/internal/common"
)

// FileObjectStore implements ObjectStore on the local filesystem.
// Key format: "acme_2024-01-01_q4_transcript.pdf" -> "{basePath}/{bucket}/acme_2024-01-01_q4_transcript.pdf"
type FileObjectStore struct {
	basePath string
	bucket   string
	urls     PublicURLBuilder
	logger   *common.Logger
}

// NewFileObjectStore creates a file-backed object store rooted at basePath/bucket.
func NewFileObjectStore(logger *common.Logger, basePath, bucket string, urls PublicURLBuilder) (*FileObjectStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file object store base_path is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("file object store bucket is required")
	}

	root := filepath.Join(basePath, bucket)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", root, err)
	}

	urls.Bucket = bucket
	fs := &FileObjectStore{
		basePath: basePath,
		bucket:   bucket,
		urls:     urls,
		logger:   logger,
	}

	logger.Debug().Str("path", root).Msg("FileObjectStore initialized")
	return fs, nil
}

// sanitizeKey converts a key to a safe filesystem path.
// Prevents path traversal while allowing "/" for subdirectories.
func (fs *FileObjectStore) sanitizeKey(key string) string {
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", "__")
	}
	return clean
}

// keyToPath converts a key to an absolute filesystem path.
func (fs *FileObjectStore) keyToPath(key string) string {
	return filepath.Join(fs.basePath, fs.bucket, fs.sanitizeKey(key))
}

// Root returns the directory holding the bucket's objects.
func (fs *FileObjectStore) Root() string {
	return filepath.Join(fs.basePath, fs.bucket)
}

// Get retrieves an object by key.
func (fs *FileObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put stores an object atomically using temp file + rename.
// The content type is implied by the key's extension.
func (fs *FileObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := fs.keyToPath(key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete removes an object. No error if not found.
func (fs *FileObjectStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(fs.keyToPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Exists checks if an object exists.
func (fs *FileObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(fs.keyToPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object %s: %w", key, err)
}

// Bucket returns the bucket name.
func (fs *FileObjectStore) Bucket() string { return fs.bucket }

// Locator returns the file://bucket/key address of key.
func (fs *FileObjectStore) Locator(key string) string {
	return FormatLocator("file", fs.bucket, fs.sanitizeKey(key))
}

// PublicURL returns the URL the HTTP server serves key under.
func (fs *FileObjectStore) PublicURL(key string) string {
	return fs.urls.URL(fs.sanitizeKey(key))
}

// Close releases resources (no-op for file storage).
func (fs *FileObjectStore) Close() error {
	return nil
}
