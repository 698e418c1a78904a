package interfaces

import (
	"context"

	"github.com/bobmcallan/insight/internal/models"
)

// TranscriptNormalizer turns a provider transcript reference into clean text and PDF bytes
type TranscriptNormalizer interface {
	// Normalize resolves, fetches and formats a transcript. Returns "" when none is available.
	Normalize(ctx context.Context, transcriptURL string, meta models.TranscriptMeta) string

	// Render lays the text out as a PDF with a title block. Returns nil on failure.
	Render(companyName, eventTitle, eventDate, text string) []byte
}

// AcquisitionService builds a document manifest for a company
type AcquisitionService interface {
	// Acquire selects, normalizes and stores up to two documents per kind.
	// Per-document failures are skipped; only an empty company id is an error.
	Acquire(ctx context.Context, company models.Company) ([]models.DocumentRecord, error)
}

// AnswerService answers questions against stored documents
type AnswerService interface {
	Answer(ctx context.Context, question string, records []models.DocumentRecord) (*models.Answer, error)
}

// CompanyResolver maps directory entries to provider identifiers
type CompanyResolver interface {
	// Resolve returns the company with its provider id filled in
	Resolve(ctx context.Context, name string) (*models.Company, error)
}

// ChatService manages conversational sessions
type ChatService interface {
	CreateSession(ctx context.Context) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SelectCompany(ctx context.Context, id, companyName string) (*models.Session, error)
	Ask(ctx context.Context, id, question string) (*models.ChatMessage, error)
}
