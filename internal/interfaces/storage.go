package interfaces

import (
	"context"

	"github.com/bobmcallan/insight/internal/models"
)

// ObjectStore holds normalized documents under bucket-relative keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// Bucket returns the bucket the store writes to
	Bucket() string

	// Locator returns the scheme://bucket/key address of a key
	Locator(key string) string

	// PublicURL returns a browser-accessible URL for a key
	PublicURL(key string) string

	Close() error
}

// CompanyDirectory is the reference list of companies users can pick from.
type CompanyDirectory interface {
	List(ctx context.Context) ([]models.Company, error)
	Names(ctx context.Context) ([]string, error)
	ByName(ctx context.Context, name string) (*models.Company, error)
	ByISIN(ctx context.Context, isin string) (*models.Company, error)
	ByProviderID(ctx context.Context, providerID string) (*models.Company, error)
	SetProviderID(ctx context.Context, name, providerID string) error
	Refresh(ctx context.Context) error
	Stats(ctx context.Context) (*models.DirectoryStats, error)
	Close() error
}
