package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/insight/internal/app"
	"github.com/bobmcallan/insight/internal/clients/gemini"
	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/server"
)

const (
	testAPIKey    = "quartr-test-key"
	appHost       = "app.quartr.test"
	publicBaseURL = "http://insight.test/files"
)

// fakeQuartr serves the provider endpoints the client calls. Event document
// URLs point back at the same server under /files.
type fakeQuartr struct {
	srv *httptest.Server

	mu        sync.Mutex
	companies map[string]models.ProviderCompany // keyed by ISIN
	events    map[string][]models.Event         // keyed by provider id
	files     map[string][]byte                 // keyed by path under /files
	requests  []string
	keys      []string
}

func newFakeQuartr(t *testing.T) *fakeQuartr {
	t.Helper()
	f := &fakeQuartr{
		companies: make(map[string]models.ProviderCompany),
		events:    make(map[string][]models.Event),
		files:     make(map[string][]byte),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, r.URL.Path)
			f.keys = append(f.keys, r.Header.Get("X-Api-Key"))
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/companies/isin/{isin}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		c, ok := f.companies[chi.URLParam(r, "isin")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"data": c})
	})
	r.Get("/companies/{id}/earlier-events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		events := f.events[chi.URLParam(r, "id")]
		f.mu.Unlock()
		if events == nil {
			events = []models.Event{}
		}
		writeJSON(w, map[string]any{"data": events})
	})
	r.Get("/transcripts/document/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.serveFile(w, r, "transcripts/"+chi.URLParam(r, "id")+".json")
	})
	r.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		f.serveFile(w, r, chi.URLParam(r, "*"))
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeQuartr) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f.mu.Lock()
	data, ok := f.files[name]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(name, ".json") {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Write(data)
}

// fileURL returns the public URL of a file registered with addFile.
func (f *fakeQuartr) fileURL(name string) string {
	return f.srv.URL + "/files/" + name
}

func (f *fakeQuartr) addFile(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = data
}

func (f *fakeQuartr) addTranscript(documentID, text string) {
	body, _ := json.Marshal(map[string]any{"transcript": map[string]any{"text": text}})
	f.addFile("transcripts/"+documentID+".json", body)
}

// apiKeysFor returns the X-Api-Key values sent with requests whose path has prefix.
func (f *fakeQuartr) apiKeysFor(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for i, p := range f.requests {
		if strings.HasPrefix(p, prefix) {
			keys = append(keys, f.keys[i])
		}
	}
	return keys
}

// fakeGemini answers generateContent calls with a fixed reply and records
// the number of inline documents in each request.
type fakeGemini struct {
	srv *httptest.Server

	mu     sync.Mutex
	reply  string
	status int
	parts  []int
}

func newFakeGemini(t *testing.T, reply string) *fakeGemini {
	t.Helper()
	g := &fakeGemini{reply: reply, status: http.StatusOK}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					InlineData *struct {
						MIMEType string `json:"mimeType"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.Unmarshal(body, &req)
		inline := 0
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				if p.InlineData != nil {
					inline++
				}
			}
		}

		g.mu.Lock()
		g.parts = append(g.parts, inline)
		status, reply := g.status, g.reply
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"code":400,"message":"request rejected","status":"INVALID_ARGUMENT"}}`))
			return
		}
		writeJSON(w, map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": reply}}},
			}},
		})
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGemini) fail(status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = status
}

// inlineCounts returns the number of documents attached to each call so far.
func (g *fakeGemini) inlineCounts() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.parts...)
}

// env runs the full stack in-process: the real Quartr and Gemini clients
// against fakes, a file-backed object store, a sqlite company directory
// seeded from yaml, and the HTTP server.
type env struct {
	t       *testing.T
	quartr  *fakeQuartr
	gemini  *fakeGemini
	app     *app.App
	srv     *httptest.Server
	dataDir string
}

const seedYAML = `companies:
  - name: 'Air Liquide SA'
    isin: FR0000120073
  - name: 'ASML Holding NV'
    isin: NL0010273215
  - name: 'Unlisted AG'
`

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	q := newFakeQuartr(t)
	g := newFakeGemini(t, "Comparable sales grew 4.8% while the operating margin improved by 110 basis points.")

	dataDir := t.TempDir()
	seed := filepath.Join(dataDir, "universe.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedYAML), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Provider.BaseURL = q.srv.URL
	cfg.Provider.AppHost = appHost
	cfg.Provider.APIKey = testAPIKey
	cfg.Provider.RateLimit = 100
	cfg.LLM.APIKey = "gemini-test-key"
	cfg.Storage.Backend = "file"
	cfg.Storage.Bucket = "documents"
	cfg.Storage.File.BasePath = filepath.Join(dataDir, "objects")
	cfg.Storage.PublicBaseURL = publicBaseURL
	cfg.Universe.DBPath = filepath.Join(dataDir, "universe.db")
	cfg.Universe.SeedFile = seed

	llm, err := gemini.NewClient(ctx, cfg.LLM.APIKey, gemini.WithBaseURL(g.srv.URL))
	require.NoError(t, err)

	a, err := app.New(ctx, cfg, nil, app.Dependencies{LLM: llm})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(srv.Close)

	return &env{t: t, quartr: q, gemini: g, app: a, srv: srv, dataDir: dataDir}
}

// do sends a JSON request to the insight server and decodes the response into out.
func (e *env) do(method, path string, body any, out any) *http.Response {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp
}

// local rewrites a public document link onto the test server.
func (e *env) local(publicURL string) string {
	e.t.Helper()
	require.True(e.t, strings.HasPrefix(publicURL, publicBaseURL), publicURL)
	return e.srv.URL + "/files" + strings.TrimPrefix(publicURL, publicBaseURL)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
