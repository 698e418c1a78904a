package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStore keeps objects in process memory. Used in development and tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	bucket  string
	urls    PublicURLBuilder
	objects map[string]memoryObject
}

// NewMemoryObjectStore creates an empty in-memory store.
func NewMemoryObjectStore(bucket string, urls PublicURLBuilder) *MemoryObjectStore {
	urls.Bucket = bucket
	return &MemoryObjectStore{
		bucket:  bucket,
		urls:    urls,
		objects: make(map[string]memoryObject),
	}
}

// Put stores a copy of data.
func (m *MemoryObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored bytes.
func (m *MemoryObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

// Exists checks if an object exists.
func (m *MemoryObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok, nil
}

// Delete removes an object. No error if not found.
func (m *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// ContentType returns the content type recorded for key.
func (m *MemoryObjectStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// Keys returns all stored keys in sorted order.
func (m *MemoryObjectStore) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Bucket returns the bucket name.
func (m *MemoryObjectStore) Bucket() string { return m.bucket }

// Locator returns the mem://bucket/key address of key.
func (m *MemoryObjectStore) Locator(key string) string {
	return FormatLocator("mem", m.bucket, key)
}

// PublicURL returns the public URL of key.
func (m *MemoryObjectStore) PublicURL(key string) string {
	return m.urls.URL(key)
}

// Close releases resources (no-op).
func (m *MemoryObjectStore) Close() error {
	return nil
}
