package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
)

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Service) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		s.writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	id := chi.URLParam(r, "id")
	if id == middleware.GetUserID(r.Context()) {
		s.writeError(w, http.StatusConflict, "cannot change your own role")
		return
	}

	if err := s.store.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("role changed", "user_id", id, "role", req.Role)
	s.writeJSON(w, http.StatusOK, map[string]string{"role": req.Role})
}

func (s *Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == middleware.GetUserID(r.Context()) {
		s.writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (s *Service) handlePendingSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListPendingSessions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetAnalytics(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleMaterialCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListMaterialCategories(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, categories)
}
