// Package transcript turns provider transcripts into formatted text and PDFs.
package transcript

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"unicode"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

// Normalizer resolves, fetches and formats transcripts.
type Normalizer struct {
	provider interfaces.ProviderClient
	logger   *common.Logger
}

var _ interfaces.TranscriptNormalizer = (*Normalizer)(nil)

// NewNormalizer creates a normalizer that fetches through provider.
func NewNormalizer(provider interfaces.ProviderClient, logger *common.Logger) *Normalizer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Normalizer{provider: provider, logger: logger}
}

// ResolveURL picks the raw transcript location, first match wins:
// the embedded transcript URL, the finished live transcript URL, then an
// app URL whose second-to-last path segment is a numeric document id.
func (n *Normalizer) ResolveURL(transcriptURL string, meta models.TranscriptMeta) string {
	if meta.TranscriptURL != "" {
		return meta.TranscriptURL
	}
	if meta.LiveTranscripts != nil && meta.LiveTranscripts.FinishedLiveTranscriptURL != "" {
		return meta.LiveTranscripts.FinishedLiveTranscriptURL
	}
	if meta.FinishedLiveTranscriptURL != "" {
		return meta.FinishedLiveTranscriptURL
	}
	if transcriptURL != "" && n.provider.IsAppURL(transcriptURL) {
		if id := documentID(transcriptURL); id != "" {
			return n.provider.TranscriptDocumentURL(id)
		}
	}
	return ""
}

// documentID returns the second-to-last path segment of rawURL when it is all digits.
func documentID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	if len(segments) < 2 {
		return ""
	}
	id := segments[len(segments)-2]
	if id == "" {
		return ""
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return id
}

// ExtractText pulls transcript text from a response body. JSON bodies are
// read from transcript.text, then text; anything else is taken as plain text.
func ExtractText(body []byte) string {
	if !json.Valid(body) {
		return string(body)
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	if t, ok := obj["transcript"].(map[string]any); ok {
		if s, _ := t["text"].(string); strings.TrimSpace(s) != "" {
			return s
		}
	}
	if s, _ := obj["text"].(string); strings.TrimSpace(s) != "" {
		return s
	}
	return ""
}

// Normalize returns the formatted transcript text, or "" when no transcript
// is available. Failures are logged, never returned.
func (n *Normalizer) Normalize(ctx context.Context, transcriptURL string, meta models.TranscriptMeta) string {
	logger := n.logger.WithContext(ctx)

	rawURL := n.ResolveURL(transcriptURL, meta)
	if rawURL == "" {
		logger.Warn().Str("url", transcriptURL).Msg("No transcript location could be resolved")
		return ""
	}

	doc, err := n.provider.Fetch(ctx, rawURL)
	if err != nil {
		logger.Warn().Err(err).Str("url", rawURL).Msg("Transcript fetch failed")
		return ""
	}

	text := ExtractText(doc.Data)
	if strings.TrimSpace(text) == "" {
		logger.Warn().Str("url", rawURL).Msg("Transcript body held no text")
		return ""
	}

	formatted := FormatText(text)
	logger.Info().Str("url", rawURL).Int("length", len(formatted)).Msg("Transcript normalized")
	return formatted
}

// Render lays the text out as a PDF. Returns nil on failure.
func (n *Normalizer) Render(companyName, eventTitle, eventDate, text string) []byte {
	return Render(n.logger, companyName, eventTitle, eventDate, text)
}
