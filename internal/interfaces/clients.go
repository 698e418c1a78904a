// Package interfaces defines service contracts for Insight
package interfaces

import (
	"context"

	"github.com/bobmcallan/insight/internal/models"
)

// ProviderClient provides access to the financial-events document provider
type ProviderClient interface {
	// ListEvents returns the company's past events in provider order.
	// Failures are logged and yield an empty slice.
	ListEvents(ctx context.Context, companyID, eventType string) []models.Event

	// GetCompany retrieves the provider's record for a company id
	GetCompany(ctx context.Context, companyID string) (*models.ProviderCompany, error)

	// GetCompanyByISIN resolves an ISIN to the provider's company record
	GetCompanyByISIN(ctx context.Context, isin string) (*models.ProviderCompany, error)

	// Fetch downloads any document URL. A non-success status is an error.
	Fetch(ctx context.Context, url string) (*models.FetchedDocument, error)

	// IsAPIURL reports whether url belongs to the provider's API host
	IsAPIURL(url string) bool

	// IsAppURL reports whether url belongs to the provider's web app host
	IsAppURL(url string) bool

	// TranscriptDocumentURL builds the API URL of a transcript document id
	TranscriptDocumentURL(documentID string) string

	// CloseIdleConnections releases pooled connections
	CloseIdleConnections()
}

// GenerateOptions tunes a single generation request.
// A nil Temperature leaves the model default in place; zero is sent as zero.
type GenerateOptions struct {
	Temperature     *float32
	MaxOutputTokens int32
}

// LLMClient provides access to the hosted language model
type LLMClient interface {
	// GenerateContent generates text from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// GenerateFromDocuments sends the documents, in order, followed by the prompt
	GenerateFromDocuments(ctx context.Context, docs []models.DocumentPart, prompt string, opts GenerateOptions) (string, error)

	// Model returns the configured model name
	Model() string
}
