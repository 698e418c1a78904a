package common

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

var (
	_ interfaces.ProviderClient     = (*MockProviderClient)(nil)
	_ interfaces.LLMClient          = (*MockLLMClient)(nil)
	_ interfaces.AcquisitionService = (*MockAcquisitionService)(nil)
	_ interfaces.AnswerService      = (*MockAnswerService)(nil)
)

// MockProviderClient implements ProviderClient for testing.
// Documents maps URLs to bodies; a URL in Failures returns an error.
type MockProviderClient struct {
	mu sync.Mutex

	Events    map[string][]models.Event
	Companies map[string]*models.ProviderCompany // keyed by ISIN
	Documents map[string]*models.FetchedDocument
	Failures  map[string]error

	APIHost string
	AppHost string

	ListEventsCalls int
	FetchCalls      []string
	ISINCalls       int
	Closed          int
}

// NewMockProviderClient creates an empty mock provider.
func NewMockProviderClient() *MockProviderClient {
	return &MockProviderClient{
		Events:    make(map[string][]models.Event),
		Companies: make(map[string]*models.ProviderCompany),
		Documents: make(map[string]*models.FetchedDocument),
		Failures:  make(map[string]error),
		APIHost:   "api.quartr.test",
		AppHost:   "app.quartr.test",
	}
}

// AddDocument registers a document body served at url.
func (m *MockProviderClient) AddDocument(url, contentType string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[url] = &models.FetchedDocument{URL: url, ContentType: contentType, Data: data}
}

func (m *MockProviderClient) ListEvents(ctx context.Context, companyID, eventType string) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListEventsCalls++
	events := m.Events[companyID]
	out := make([]models.Event, len(events))
	copy(out, events)
	return out
}

func (m *MockProviderClient) GetCompany(ctx context.Context, companyID string) (*models.ProviderCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Companies {
		if fmt.Sprint(c.ID) == companyID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("company %s not found", companyID)
}

func (m *MockProviderClient) GetCompanyByISIN(ctx context.Context, isin string) (*models.ProviderCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ISINCalls++
	if c, ok := m.Companies[isin]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("isin %s not found", isin)
}

func (m *MockProviderClient) Fetch(ctx context.Context, url string) (*models.FetchedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, url)
	if err, ok := m.Failures[url]; ok {
		return nil, err
	}
	if doc, ok := m.Documents[url]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("fetch %s: status 404", url)
}

func (m *MockProviderClient) IsAPIURL(url string) bool {
	return strings.Contains(url, "://"+m.APIHost+"/")
}

func (m *MockProviderClient) IsAppURL(url string) bool {
	return strings.Contains(url, "://"+m.AppHost+"/")
}

func (m *MockProviderClient) TranscriptDocumentURL(documentID string) string {
	return "https://" + m.APIHost + "/public/v1/transcripts/document/" + documentID
}

func (m *MockProviderClient) CloseIdleConnections() {
	m.mu.Lock()
	m.Closed++
	m.mu.Unlock()
}

// MockLLMClient implements LLMClient for testing and records every request.
type MockLLMClient struct {
	mu sync.Mutex

	Response string
	Err      error

	Prompts []string
	Parts   [][]models.DocumentPart
	Options []interfaces.GenerateOptions
}

// NewMockLLMClient creates a mock model that always answers with response.
func NewMockLLMClient(response string) *MockLLMClient {
	return &MockLLMClient{Response: response}
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return m.GenerateFromDocuments(ctx, nil, prompt, interfaces.GenerateOptions{})
}

func (m *MockLLMClient) GenerateFromDocuments(ctx context.Context, docs []models.DocumentPart, prompt string, opts interfaces.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.Parts = append(m.Parts, docs)
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLMClient) Model() string { return "mock-model" }

// Calls returns the number of generation requests made.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockAcquisitionService implements AcquisitionService for testing.
type MockAcquisitionService struct {
	mu sync.Mutex

	Records map[string][]models.DocumentRecord // keyed by provider id
	Err     error
	Block   chan struct{} // when set, Acquire waits for it to close

	Calls []string
}

func (m *MockAcquisitionService) Acquire(ctx context.Context, company models.Company) ([]models.DocumentRecord, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, company.ProviderID)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Records[company.ProviderID], nil
}

// CallCount returns the number of Acquire calls.
func (m *MockAcquisitionService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockAnswerService implements AnswerService for testing.
type MockAnswerService struct {
	mu sync.Mutex

	Text string
	Err  error

	Questions []string
	Records   [][]models.DocumentRecord
}

func (m *MockAnswerService) Answer(ctx context.Context, question string, records []models.DocumentRecord) (*models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Questions = append(m.Questions, question)
	m.Records = append(m.Records, records)
	if m.Err != nil {
		return nil, m.Err
	}
	sources := make([]models.Source, len(records))
	for i, r := range records {
		sources[i] = models.Source{Filename: r.Filename, Kind: r.Kind, EventTitle: r.EventTitle, EventDate: r.EventDate, URL: r.PublicURL}
	}
	return &models.Answer{Text: m.Text, Sources: sources, Documents: len(records)}, nil
}
