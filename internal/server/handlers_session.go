package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Chat.CreateSession(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Chat.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Chat.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionCompany serves PUT /api/sessions/{id}/company with {"name": ...}.
func (s *Server) handleSessionCompany(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "name is required", "empty_company")
		return
	}

	sess, err := s.app.Chat.SelectCompany(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

// handleSessionMessage serves POST /api/sessions/{id}/messages with {"question": ...}
// and returns the assistant's reply.
func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	msg, err := s.app.Chat.Ask(r.Context(), chi.URLParam(r, "id"), body.Question)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, msg)
}
