// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultTimeout        = 120 * time.Second
	DefaultMaxContentSize = 48 * 1024 * 1024 // inline request budget across all documents
)

// Client implements the LLMClient interface
type Client struct {
	client         *genai.Client
	model          string
	baseURL        string
	timeout        time.Duration
	maxContentSize int
	logger         *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithBaseURL overrides the API endpoint (used by tests and proxies)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithMaxContentSize caps the total bytes of inline documents per request
func WithMaxContentSize(n int) ClientOption {
	return func(c *Client) {
		c.maxContentSize = n
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", common.ErrMissingConfig)
	}

	c := &Client{
		model:          DefaultModel,
		timeout:        DefaultTimeout,
		maxContentSize: DefaultMaxContentSize,
		logger:         common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = genaiClient

	return c, nil
}

// Close closes the client
func (c *Client) Close() error {
	// The genai client doesn't have a Close method
	return nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateContent generates AI content from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// GenerateFromDocuments sends each document as an inline part, in order,
// followed by the prompt as the trailing text part.
func (c *Client) GenerateFromDocuments(ctx context.Context, docs []models.DocumentPart, prompt string, opts interfaces.GenerateOptions) (string, error) {
	parts := make([]*genai.Part, 0, len(docs)+1)
	total := 0
	for _, d := range docs {
		total += len(d.Data)
		if c.maxContentSize > 0 && total > c.maxContentSize {
			return "", fmt.Errorf("documents exceed inline size limit of %d bytes", c.maxContentSize)
		}
		mimeType := d.MIMEType
		if mimeType == "" {
			mimeType = "application/pdf"
		}
		parts = append(parts, genai.NewPartFromBytes(d.Data, mimeType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(*opts.Temperature)
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = opts.MaxOutputTokens
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Int("documents", len(docs)).Dur("elapsed", elapsed).Msg("Gemini request failed")
		return "", fmt.Errorf("failed to generate content from documents: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("model", c.model).
		Int("documents", len(docs)).
		Int("bytes", total).
		Int("answer_chars", len(text)).
		Dur("elapsed", elapsed).
		Msg("Gemini call")

	return text, nil
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

// Ensure Client implements LLMClient
var _ interfaces.LLMClient = (*Client)(nil)
