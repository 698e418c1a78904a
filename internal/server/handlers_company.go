package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/insight/internal/models"
)

// handleCompanyList serves GET /api/companies?filter=.
func (s *Server) handleCompanyList(w http.ResponseWriter, r *http.Request) {
	companies, err := s.app.Directory.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	filter := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("filter")))
	out := make([]models.Company, 0, len(companies))
	for _, c := range companies {
		if filter == "" || strings.Contains(strings.ToLower(c.Name), filter) {
			out = append(out, c)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"companies": out,
		"count":     len(out),
	})
}

// handleCompanyDocuments serves POST /api/companies/{company}/documents.
// {company} is a provider id, ISIN or URL-escaped name.
func (s *Server) handleCompanyDocuments(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "company")
	manifest, err := s.app.AcquireDocuments(r.Context(), ref)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, manifest)
}
