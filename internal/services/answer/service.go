// Package answer sends stored documents and a question to the language model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/storage"
)

// Generation defaults favour short, repeatable answers.
const (
	DefaultTemperature     float32 = 0.1
	DefaultMaxOutputTokens int32   = 7000
)

// NoDocumentsMessage is returned as the answer when nothing could be downloaded.
const NoDocumentsMessage = "No usable documents could be retrieved for this company, so the question could not be answered."

var (
	// ErrModelUnavailable means no language model is configured.
	ErrModelUnavailable = errors.New("language model is not configured")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Service implements AnswerService.
type Service struct {
	store           interfaces.ObjectStore
	llm             interfaces.LLMClient
	logger          *common.Logger
	temperature     float32
	maxOutputTokens int32
	tempDir         string
}

var _ interfaces.AnswerService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithTemperature sets the sampling temperature. Zero is honoured; negative
// values keep the default.
func WithTemperature(t float32) Option {
	return func(s *Service) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithMaxOutputTokens caps the answer length.
func WithMaxOutputTokens(n int32) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOutputTokens = n
		}
	}
}

// WithTempDir sets the parent directory for per-call download directories.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// NewService creates an answer service. llm may be nil; Answer then
// returns ErrModelUnavailable.
func NewService(store interfaces.ObjectStore, llm interfaces.LLMClient, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		store:           store,
		llm:             llm,
		logger:          logger,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPrompt returns the analyst instruction with the user's question embedded.
func BuildPrompt(question string) string {
	return "You are a senior financial analyst. Review the attached documents and provide a detailed and structured answer to the user's query. User's query: '" + question + "'"
}

// FormatSources renders the citation list appended to every answer.
func FormatSources(sources []models.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n### Sources\n")
	for i, src := range sources {
		fmt.Fprintf(&sb, "%d. [%s](%s) - %s, %s (%s)\n", i+1, src.Filename, src.URL, src.Kind, src.EventTitle, src.EventDate)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Answer downloads the records into a private temp directory, sends them with
// the question to the model and appends the source list.
func (s *Service) Answer(ctx context.Context, question string, records []models.DocumentRecord) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.llm == nil {
		return nil, ErrModelUnavailable
	}

	logger := s.logger.WithContext(ctx)
	start := time.Now()

	dir, err := os.MkdirTemp(s.tempDir, "insight-answer-*")
	if err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	defer os.RemoveAll(dir)

	parts, sources := s.download(ctx, logger, dir, records)
	if len(parts) == 0 {
		logger.Warn().Int("records", len(records)).Msg("No documents downloaded; model not called")
		return &models.Answer{Text: NoDocumentsMessage, Sources: []models.Source{}}, nil
	}

	temperature := s.temperature
	text, err := s.llm.GenerateFromDocuments(ctx, parts, BuildPrompt(question), interfaces.GenerateOptions{
		Temperature:     &temperature,
		MaxOutputTokens: s.maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	logger.Info().
		Str("model", s.llm.Model()).
		Int("documents", len(parts)).
		Int("answer_length", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Answer generated")

	return &models.Answer{
		Text:      strings.TrimSpace(text) + FormatSources(sources),
		Sources:   sources,
		Model:     s.llm.Model(),
		Documents: len(parts),
	}, nil
}

// download copies each record to dir and reads it back as a model part.
// Records that fail are logged and left out.
func (s *Service) download(ctx context.Context, logger *common.Logger, dir string, records []models.DocumentRecord) ([]models.DocumentPart, []models.Source) {
	parts := make([]models.DocumentPart, 0, len(records))
	sources := make([]models.Source, 0, len(records))

	for _, rec := range records {
		key := recordKey(rec)
		data, ok := storage.Download(ctx, s.store, logger, key)
		if !ok || len(data) == 0 {
			continue
		}

		name := storage.BaseName(key)
		local := filepath.Join(dir, name)
		if err := os.WriteFile(local, data, 0o600); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to write local copy")
			continue
		}
		body, err := os.ReadFile(local)
		if err != nil {
			logger.Warn().Err(err).Str("path", local).Msg("Failed to read local copy")
			continue
		}

		mimeType := rec.ContentType
		if mimeType == "" {
			mimeType = storage.ContentTypeForKey(key)
		}

		parts = append(parts, models.DocumentPart{Name: name, MIMEType: mimeType, Data: body})

		url := rec.PublicURL
		if url == "" {
			url = s.store.PublicURL(key)
		}
		sources = append(sources, models.Source{
			Filename:   name,
			Kind:       rec.Kind,
			EventTitle: rec.EventTitle,
			EventDate:  rec.EventDate,
			URL:        url,
		})
	}
	return parts, sources
}

// recordKey returns the object key of a record, preferring its locator.
func recordKey(rec models.DocumentRecord) string {
	if _, key, err := storage.ParseLocator(rec.StorageLocator); err == nil && key != "" {
		return key
	}
	return rec.Filename
}
