package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

type activityLineRequest struct {
	MaterialID      string   `json:"materialId"`
	QtyUsed         float64  `json:"qtyUsed"`
	ConsumptionMode string   `json:"consumptionMode"`
	GroupSize       int      `json:"groupSize"`
	WastePct        float64  `json:"wastePct"`
	ManualOverride  bool     `json:"manualOverride"`
	ManualUnitCost  *float64 `json:"manualUnitCost"`
}

type activityRequest struct {
	Name            string                `json:"name"`
	Category        string                `json:"category"`
	AgeGroup        string                `json:"ageGroup"`
	DurationMins    int                   `json:"durationMins"`
	DefaultStudents int                   `json:"defaultStudents"`
	Description     string                `json:"description"`
	Materials       []activityLineRequest `json:"materials"`
}

func (a activityRequest) validate() string {
	if a.Name == "" {
		return "name is required"
	}
	for _, line := range a.Materials {
		if line.MaterialID == "" {
			return "each material line needs a materialId"
		}
		if line.QtyUsed < 0 {
			return "qtyUsed cannot be negative"
		}
	}
	return ""
}

func (a activityRequest) lines(activityID string) []models.ActivityMaterial {
	out := make([]models.ActivityMaterial, 0, len(a.Materials))
	for i, line := range a.Materials {
		out = append(out, models.ActivityMaterial{
			ActivityID:      activityID,
			MaterialID:      line.MaterialID,
			QtyUsed:         line.QtyUsed,
			ConsumptionMode: line.ConsumptionMode,
			GroupSize:       line.GroupSize,
			WastePct:        line.WastePct,
			ManualOverride:  line.ManualOverride,
			ManualUnitCost:  line.ManualUnitCost,
			SortOrder:       i,
		})
	}
	return out
}

func (s *Service) handleListActivities(w http.ResponseWriter, r *http.Request) {
	filter := storage.ActivityFilter{
		Query:    r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	activities, err := s.store.ListActivities(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, activities)
}

func (s *Service) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	a := &models.Activity{
		Name:            req.Name,
		Category:        req.Category,
		AgeGroup:        req.AgeGroup,
		DurationMins:    req.DurationMins,
		DefaultStudents: req.DefaultStudents,
		Description:     req.Description,
		CreatedBy:       middleware.GetUserID(r.Context()),
		Materials:       req.lines(""),
	}
	if err := s.store.CreateActivity(r.Context(), a); err != nil {
		s.fail(w, err)
		return
	}

	created, err := s.store.GetActivity(r.Context(), a.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Service) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Service) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if a.IsLocked && middleware.GetRole(r.Context()) != models.RoleAdmin {
		s.writeError(w, http.StatusForbidden, "activity is locked")
		return
	}

	var req activityRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	a.Name = req.Name
	a.Category = req.Category
	a.AgeGroup = req.AgeGroup
	a.DurationMins = req.DurationMins
	a.DefaultStudents = req.DefaultStudents
	a.Description = req.Description
	a.Materials = req.lines(a.ID)

	if err := s.store.UpdateActivity(r.Context(), a, true); err != nil {
		s.fail(w, err)
		return
	}

	updated, err := s.store.GetActivity(r.Context(), a.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Service) handleLockActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.SetActivityLocked(r.Context(), id, req.Locked); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"locked": req.Locked})
}

func (s *Service) handleArchiveActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ArchiveActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "activity archived"})
}
