package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

type capturedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     *float64 `json:"temperature"`
		MaxOutputTokens int      `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func newTestServer(t *testing.T, captured *capturedRequest, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Revenue grew "},{"text":"12%."}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateFromDocuments_SendsPartsInOrder(t *testing.T) {
	var captured capturedRequest
	var path string
	srv := newTestServer(t, &captured, &path)

	client, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	docs := []models.DocumentPart{
		{Name: "a.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-a")},
		{Name: "b.pdf", Data: []byte("%PDF-b")},
	}
	text, err := client.GenerateFromDocuments(context.Background(), docs, "What changed?", interfaces.GenerateOptions{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 7000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", text)

	assert.True(t, strings.HasSuffix(path, "models/gemini-2.0-flash:generateContent"), path)

	require.Len(t, captured.Contents, 1)
	parts := captured.Contents[0].Parts
	require.Len(t, parts, 3)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "application/pdf", parts[0].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-a")), parts[0].InlineData.Data)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "application/pdf", parts[1].InlineData.MIMEType, "missing MIME type defaults to pdf")
	assert.Equal(t, "What changed?", parts[2].Text)

	require.NotNil(t, captured.GenerationConfig.Temperature)
	assert.InDelta(t, 0.1, *captured.GenerationConfig.Temperature, 1e-6)
	assert.Equal(t, 7000, captured.GenerationConfig.MaxOutputTokens)
}

func TestGenerateFromDocuments_Temperature(t *testing.T) {
	docs := []models.DocumentPart{{Name: "a.pdf", Data: []byte("%PDF-a")}}

	tests := []struct {
		name string
		temp *float32
		want *float64
	}{
		{"zero is sent", genai.Ptr[float32](0), genai.Ptr(0.0)},
		{"unset is omitted", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedRequest
			var path string
			srv := newTestServer(t, &captured, &path)

			client, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = client.GenerateFromDocuments(context.Background(), docs, "Q?", interfaces.GenerateOptions{Temperature: tt.temp})
			require.NoError(t, err)

			if tt.want == nil {
				assert.Nil(t, captured.GenerationConfig.Temperature)
				return
			}
			require.NotNil(t, captured.GenerationConfig.Temperature)
			assert.InDelta(t, *tt.want, *captured.GenerationConfig.Temperature, 1e-6)
		})
	}
}

func TestGenerateFromDocuments_SizeLimit(t *testing.T) {
	var captured capturedRequest
	var path string
	srv := newTestServer(t, &captured, &path)

	client, err := NewClient(context.Background(), "k", WithBaseURL(srv.URL), WithMaxContentSize(4))
	require.NoError(t, err)

	_, err = client.GenerateFromDocuments(context.Background(), []models.DocumentPart{{Data: []byte("12345")}}, "q", interfaces.GenerateOptions{})
	assert.Error(t, err)
	assert.Empty(t, path, "oversized requests are not sent")
}

func TestGenerateFromDocuments_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), "k", WithBaseURL(srv.URL), WithModel("gemini-1.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", client.Model())

	_, err = client.GenerateFromDocuments(context.Background(), nil, "q", interfaces.GenerateOptions{})
	assert.Error(t, err)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.True(t, errors.Is(err, common.ErrMissingConfig))
}
