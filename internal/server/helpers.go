package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bobmcallan/insight/internal/services/chat"
	"github.com/bobmcallan/insight/internal/storage/universe"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// WriteServiceError maps a service error onto a status code and error code.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "session_not_found")
	case errors.Is(err, chat.ErrUnknownCompany), errors.Is(err, universe.ErrCompanyNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "company_not_found")
	case errors.Is(err, universe.ErrUnresolved):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), "company_unresolved")
	case errors.Is(err, chat.ErrSessionBusy):
		WriteErrorWithCode(w, http.StatusConflict, err.Error(), "session_busy")
	case errors.Is(err, chat.ErrEmptyQuestion):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "empty_question")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
