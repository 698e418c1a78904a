// Package quartr provides a client for the Quartr public API
package quartr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

const (
	DefaultBaseURL     = "https://api.quartr.com/public/v1"
	DefaultAppHost     = "app.quartr.com"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 5 // requests per second
	DefaultEventLimit  = 10
	MaxDocumentSize    = 64 * 1024 * 1024 // 64MB
	apiKeyHeader       = "X-Api-Key"
	eventTypeAll       = "all"
	transcriptDocument = "/transcripts/document/"
)

// Client implements the ProviderClient interface against the Quartr API
type Client struct {
	baseURL    string
	apiHost    string
	appHost    string
	apiKey     string
	eventLimit int
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAppHost sets the host of the provider's web app
func WithAppHost(host string) ClientOption {
	return func(c *Client) {
		c.appHost = strings.ToLower(host)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithEventLimit sets how many events are requested per listing
func WithEventLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.eventLimit = limit
		}
	}
}

// NewClient creates a new Quartr API client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		appHost:    DefaultAppHost,
		apiKey:     apiKey,
		eventLimit: DefaultEventLimit,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if u, err := url.Parse(c.baseURL); err == nil {
		c.apiHost = strings.ToLower(u.Host)
	}

	return c
}

// get issues a rate-limited GET and returns the response for status 200.
// The X-Api-Key header is only sent to the API host.
func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if c.IsAPIURL(reqURL) && c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, elapsed, &StatusError{URL: reqURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return resp, elapsed, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quartr: status %d for %s", e.StatusCode, e.URL)
}

// ListEvents returns the company's earlier events. Failures are logged and
// yield an empty slice; the order is whatever the provider returned.
func (c *Client) ListEvents(ctx context.Context, companyID, eventType string) []models.Event {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		c.logger.Warn().Msg("Quartr events requested without a company id")
		return []models.Event{}
	}

	params := url.Values{}
	if eventType != "" && eventType != eventTypeAll {
		params.Set("type", eventType)
	}
	params.Set("limit", strconv.Itoa(c.eventLimit))
	params.Set("page", "1")

	reqURL := fmt.Sprintf("%s/companies/%s/earlier-events?%s", c.baseURL, url.PathEscape(companyID), params.Encode())

	resp, elapsed, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("company_id", companyID).Dur("elapsed", elapsed).Msg("Quartr events request failed")
		return []models.Event{}
	}
	defer resp.Body.Close()

	var apiResp models.EventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		c.logger.Warn().Err(err).Str("company_id", companyID).Msg("Failed to decode Quartr events")
		return []models.Event{}
	}

	c.logger.Info().Str("company_id", companyID).Int("events", len(apiResp.Data)).Dur("elapsed", elapsed).Msg("Quartr events call")

	if apiResp.Data == nil {
		return []models.Event{}
	}
	return apiResp.Data
}

// companyResponse accepts both bare and {"data": ...} wrapped company bodies.
type companyResponse struct {
	models.ProviderCompany
	Data *models.ProviderCompany `json:"data"`
}

func (c *Client) getCompany(ctx context.Context, reqURL, ref string) (*models.ProviderCompany, error) {
	resp, elapsed, err := c.get(ctx, reqURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("company", ref).Dur("elapsed", elapsed).Msg("Quartr company request failed")
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp companyResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	company := apiResp.ProviderCompany
	if apiResp.Data != nil && apiResp.Data.ID != 0 {
		company = *apiResp.Data
	}
	if company.ID == 0 {
		return nil, fmt.Errorf("quartr: no company in response for %s", ref)
	}

	c.logger.Debug().Str("company", ref).Int("id", company.ID).Dur("elapsed", elapsed).Msg("Quartr company call")
	return &company, nil
}

// GetCompany retrieves a company by provider id
func (c *Client) GetCompany(ctx context.Context, companyID string) (*models.ProviderCompany, error) {
	return c.getCompany(ctx, fmt.Sprintf("%s/companies/%s", c.baseURL, url.PathEscape(companyID)), companyID)
}

// GetCompanyByISIN resolves an ISIN to a provider company
func (c *Client) GetCompanyByISIN(ctx context.Context, isin string) (*models.ProviderCompany, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if isin == "" {
		return nil, fmt.Errorf("isin is required")
	}
	return c.getCompany(ctx, fmt.Sprintf("%s/companies/isin/%s", c.baseURL, url.PathEscape(isin)), isin)
}

// Fetch downloads a document. Non-200 responses are returned as *StatusError.
func (c *Client) Fetch(ctx context.Context, docURL string) (*models.FetchedDocument, error) {
	resp, elapsed, err := c.get(ctx, docURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", docURL).Dur("elapsed", elapsed).Msg("Document fetch failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", docURL, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("document %s exceeds %d bytes", docURL, MaxDocumentSize)
	}

	c.logger.Debug().Str("url", docURL).Int("bytes", len(data)).Dur("elapsed", elapsed).Msg("Document fetched")

	return &models.FetchedDocument{
		URL:         docURL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// IsAPIURL reports whether rawURL points at the API host
func (c *Client) IsAPIURL(rawURL string) bool {
	return c.apiHost != "" && hostOf(rawURL) == c.apiHost
}

// IsAppURL reports whether rawURL points at the provider's web app
func (c *Client) IsAppURL(rawURL string) bool {
	return c.appHost != "" && hostOf(rawURL) == c.appHost
}

// TranscriptDocumentURL returns the API URL of a transcript document
func (c *Client) TranscriptDocumentURL(documentID string) string {
	return c.baseURL + transcriptDocument + url.PathEscape(documentID)
}

// CloseIdleConnections releases pooled keep-alive connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Ensure Client implements ProviderClient
var _ interfaces.ProviderClient = (*Client)(nil)
