package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/storage"
)

// registerRoutes sets up all routes on the router.
func (s *Server) registerRoutes(r chi.Router) {
	// System
	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)

	// Companies
	r.Get("/api/companies", s.handleCompanyList)
	r.Post("/api/companies/{company}/documents", s.handleCompanyDocuments)

	// Chat sessions
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleSessionCreate)
		r.Get("/{id}", s.handleSessionGet)
		r.Delete("/{id}", s.handleSessionDelete)
		r.Put("/{id}/company", s.handleSessionCompany)
		r.Post("/{id}/messages", s.handleSessionMessage)
	})

	// Stored documents
	r.Get("/files/{bucket}/*", s.handleFile)
	r.Head("/files/{bucket}/*", s.handleFile)

	// MCP over Streamable HTTP
	r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "ok",
		"uptime":          time.Since(s.app.StartupTime).Round(time.Second).String(),
		"config_complete": s.app.ConfigErr == nil,
		"llm_configured":  s.app.LLM != nil,
	}
	if stats, err := s.app.Directory.Stats(r.Context()); err == nil {
		resp["companies"] = stats.Companies
		resp["mapped"] = stats.Mapped
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleFile serves GET /files/{bucket}/{key} from the object store.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if bucket != s.app.Store.Bucket() || key == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	data, err := s.app.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrEmptyKey) {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		s.logger.WithContext(r.Context()).Error().Err(err).Str("key", key).Msg("Failed to read stored document")
		WriteError(w, http.StatusInternalServerError, "Failed to read document")
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeForKey(key))
	w.Header().Set("Content-Disposition", `inline; filename="`+storage.BaseName(key)+`"`)
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
}
