// Package acquisition selects, normalizes and stores a company's recent
// investor-relations documents.
package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/storage"
)

const (
	// MaxPerKind caps how many documents of one kind a run keeps.
	MaxPerKind = 2
	// MaxDocuments is the largest manifest a run can produce.
	MaxDocuments = MaxPerKind * 3

	// DefaultEventType requests every event type from the provider.
	DefaultEventType = "all"
)

// ErrEmptyCompanyID is returned when Acquire is called for an unmapped company.
var ErrEmptyCompanyID = errors.New("company id is empty")

// Service implements AcquisitionService.
type Service struct {
	provider   interfaces.ProviderClient
	normalizer interfaces.TranscriptNormalizer
	store      interfaces.ObjectStore
	logger     *common.Logger
	eventType  string
	now        func() time.Time
}

var _ interfaces.AcquisitionService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithEventType restricts the provider listing to one event type.
func WithEventType(eventType string) Option {
	return func(s *Service) {
		if eventType != "" {
			s.eventType = eventType
		}
	}
}

// WithClock sets the clock used for StoredAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an acquisition service.
func NewService(provider interfaces.ProviderClient, normalizer interfaces.TranscriptNormalizer, store interfaces.ObjectStore, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		provider:   provider,
		normalizer: normalizer,
		store:      store,
		logger:     logger,
		eventType:  DefaultEventType,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire builds the manifest for a company: up to MaxPerKind documents of
// each kind, taken from the most recent events first. A document that cannot
// be fetched, normalized or stored is skipped. Errors are an empty id and a
// cancelled context; a cancelled run returns no partial manifest.
func (s *Service) Acquire(ctx context.Context, company models.Company) ([]models.DocumentRecord, error) {
	companyID := strings.TrimSpace(company.ID())
	if companyID == "" {
		return nil, fmt.Errorf("acquire %q: %w", company.Name, ErrEmptyCompanyID)
	}

	logger := s.logger.WithContext(ctx)
	start := time.Now()
	defer s.provider.CloseIdleConnections()

	events := s.provider.ListEvents(ctx, companyID, s.eventType)
	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Str("company_id", companyID).Msg("Acquisition cancelled while listing events")
		return nil, fmt.Errorf("acquire %s: %w", companyID, err)
	}
	if len(events) == 0 {
		logger.Info().Str("company_id", companyID).Msg("No events returned; manifest is empty")
		return []models.DocumentRecord{}, nil
	}

	name := s.companyName(ctx, company)

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventDate > sorted[j].EventDate
	})

	records := make([]models.DocumentRecord, 0, MaxDocuments)
	counts := make(map[models.DocumentKind]int, len(models.DocumentKinds))
	scanned := 0

	for _, event := range sorted {
		if satisfied(counts) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		scanned++

		if counts[models.KindTranscript] < MaxPerKind && event.TranscriptURL != "" {
			if rec, ok := s.acquireTranscript(ctx, logger, name, event); ok {
				records = append(records, rec)
				counts[models.KindTranscript]++
			}
		}

		if counts[models.KindReport] < MaxPerKind && event.ReportURL != "" {
			if rec, ok := s.acquireDirect(ctx, logger, name, event, models.KindReport, event.ReportURL); ok {
				records = append(records, rec)
				counts[models.KindReport]++
			}
		}

		if counts[models.KindSlides] < MaxPerKind && event.PdfURL != "" {
			if rec, ok := s.acquireDirect(ctx, logger, name, event, models.KindSlides, event.PdfURL); ok {
				records = append(records, rec)
				counts[models.KindSlides]++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Str("company_id", companyID).Int("stored", len(records)).Msg("Acquisition cancelled; manifest discarded")
		return nil, fmt.Errorf("acquire %s: %w", companyID, err)
	}

	logger.Info().
		Str("company_id", companyID).
		Str("company", name).
		Int("events", len(events)).
		Int("scanned", scanned).
		Int("transcripts", counts[models.KindTranscript]).
		Int("reports", counts[models.KindReport]).
		Int("slides", counts[models.KindSlides]).
		Dur("elapsed", time.Since(start)).
		Msg("Acquisition complete")

	return records, nil
}

// satisfied reports whether every kind has reached its cap.
func satisfied(counts map[models.DocumentKind]int) bool {
	for _, kind := range models.DocumentKinds {
		if counts[kind] < MaxPerKind {
			return false
		}
	}
	return true
}

// companyName returns the display name used in keys and title blocks.
// The directory name wins; the provider's display name fills a blank one.
func (s *Service) companyName(ctx context.Context, company models.Company) string {
	if strings.TrimSpace(company.Name) != "" {
		return company.Name
	}
	pc, err := s.provider.GetCompany(ctx, company.ID())
	if err != nil || pc == nil || pc.DisplayName == "" {
		s.logger.Debug().Err(err).Str("company_id", company.ID()).Msg("Provider company lookup failed; using id as name")
		return company.ID()
	}
	return pc.DisplayName
}

func (s *Service) acquireTranscript(ctx context.Context, logger *common.Logger, name string, event models.Event) (models.DocumentRecord, bool) {
	text := s.normalizer.Normalize(ctx, event.TranscriptURL, event.TranscriptMetadata())
	if text == "" {
		logger.Debug().Str("event_title", event.Title()).Msg("No transcript text; skipping")
		return models.DocumentRecord{}, false
	}

	data := s.normalizer.Render(name, event.Title(), event.Date(), text)
	if len(data) == 0 {
		return models.DocumentRecord{}, false
	}

	return s.save(ctx, logger, name, event, models.KindTranscript, event.TranscriptURL, data, storage.DefaultContentType)
}

func (s *Service) acquireDirect(ctx context.Context, logger *common.Logger, name string, event models.Event, kind models.DocumentKind, url string) (models.DocumentRecord, bool) {
	doc, err := s.provider.Fetch(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(kind)).Str("event_title", event.Title()).Msg("Document fetch failed; skipping")
		return models.DocumentRecord{}, false
	}

	return s.save(ctx, logger, name, event, kind, url, doc.Data, contentType(doc.ContentType))
}

// save uploads data under the document's key and builds its manifest record.
func (s *Service) save(ctx context.Context, logger *common.Logger, name string, event models.Event, kind models.DocumentKind, sourceURL string, data []byte, ct string) (models.DocumentRecord, bool) {
	key := storage.DocumentKey(name, event.EventDate, event.Title(), kind, sourceURL)
	if !storage.Upload(ctx, s.store, logger, data, key, ct) {
		return models.DocumentRecord{}, false
	}

	rec := models.DocumentRecord{
		Filename:       key,
		Kind:           kind,
		EventDate:      event.Date(),
		EventTitle:     event.Title(),
		StorageLocator: s.store.Locator(key),
		PublicURL:      s.store.PublicURL(key),
		ContentType:    ct,
		Size:           len(data),
		StoredAt:       s.now().UTC(),
	}
	if ct == storage.DefaultContentType {
		rec.Pages = PageCount(data)
	}

	logger.Info().
		Str("key", key).
		Str("kind", string(kind)).
		Int("bytes", rec.Size).
		Int("pages", rec.Pages).
		Msg("Document stored")
	return rec, true
}

// contentType normalizes a response Content-Type header, defaulting to PDF.
func contentType(header string) string {
	if header == "" {
		return storage.DefaultContentType
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		return storage.DefaultContentType
	}
	return mt
}

// PageCount returns the number of pages in a PDF, or 0 when it cannot be read.
func PageCount(data []byte) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
