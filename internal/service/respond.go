package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stemlabtz/stemquote/internal/auth"
	"github.com/stemlabtz/stemquote/internal/pricing"
	"github.com/stemlabtz/stemquote/internal/storage"
)

// errorResponse is the wire shape of every error the API returns.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps a domain error to its HTTP status. Unmapped errors become a
// generic 500 with the detail kept in the log, not the response.
func (s *Service) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, pricing.ErrMarginTooHigh):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrResetTokenInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Service) unauthorized(w http.ResponseWriter, err error) {
	s.writeError(w, http.StatusUnauthorized, err.Error())
}

func (s *Service) forbidden(w http.ResponseWriter, roles []string) {
	s.writeError(w, http.StatusForbidden,
		fmt.Sprintf("requires role: %s", strings.Join(roles, " or ")))
}

// decode parses the JSON request body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
