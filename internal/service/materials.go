package service

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

type materialRequest struct {
	Name      string  `json:"name"`
	UnitType  string  `json:"unitType"`
	PackSize  float64 `json:"packSize"`
	PackPrice float64 `json:"packPrice"`
	Category  string  `json:"category"`
	Notes     string  `json:"notes"`
}

func (m materialRequest) validate() string {
	switch {
	case m.Name == "":
		return "name is required"
	case m.UnitType == "":
		return "unitType is required"
	case m.PackSize <= 0:
		return "packSize must be greater than zero"
	case m.PackPrice < 0:
		return "packPrice cannot be negative"
	}
	return ""
}

func (s *Service) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	filter := storage.MaterialFilter{
		Query:    r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	materials, err := s.store.ListMaterials(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, materials)
}

func (s *Service) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	m := &models.Material{
		Name:      req.Name,
		UnitType:  req.UnitType,
		PackSize:  req.PackSize,
		PackPrice: req.PackPrice,
		Category:  req.Category,
		Notes:     req.Notes,
		CreatedBy: middleware.GetUserID(r.Context()),
	}
	if err := s.store.CreateMaterial(r.Context(), m); err != nil {
		s.fail(w, err)
		return
	}

	// The first price version anchors the history.
	v := &models.PriceVersion{
		MaterialID:    m.ID,
		PackPrice:     m.PackPrice,
		PackSize:      m.PackSize,
		SetBy:         m.CreatedBy,
		EffectiveFrom: time.Now().Unix(),
	}
	if err := s.store.AddPriceVersion(r.Context(), v); err != nil {
		s.fail(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Service) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Service) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	m, err := s.store.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	priceChanged := m.PackPrice != req.PackPrice || m.PackSize != req.PackSize

	m.Name = req.Name
	m.UnitType = req.UnitType
	m.PackSize = req.PackSize
	m.PackPrice = req.PackPrice
	m.Category = req.Category
	m.Notes = req.Notes
	if err := s.store.UpdateMaterial(r.Context(), m); err != nil {
		s.fail(w, err)
		return
	}

	if priceChanged {
		v := &models.PriceVersion{
			MaterialID:    m.ID,
			PackPrice:     m.PackPrice,
			PackSize:      m.PackSize,
			SetBy:         middleware.GetUserID(r.Context()),
			EffectiveFrom: time.Now().Unix(),
		}
		if err := s.store.AddPriceVersion(r.Context(), v); err != nil {
			s.fail(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, m)
}

func (s *Service) handleArchiveMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ArchiveMaterial(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "material archived"})
}

func (s *Service) handleMaterialHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.store.ListPriceVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, versions)
}
