package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stemlabtz/stemquote/internal/export"
	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/pricing"
	"github.com/stemlabtz/stemquote/internal/storage"
)

type sessionRequest struct {
	Name          string   `json:"name"`
	ClientName    string   `json:"clientName"`
	ClientContact string   `json:"clientContact"`
	StudentCount  int      `json:"studentCount"`
	MarginPct     float64  `json:"marginPct"`
	Notes         string   `json:"notes"`
	ActivityIDs   []string `json:"activityIds"`
}

func (sr sessionRequest) validate() string {
	switch {
	case sr.Name == "":
		return "name is required"
	case sr.StudentCount < 0:
		return "studentCount cannot be negative"
	case sr.MarginPct < 0 || sr.MarginPct >= 100:
		return "marginPct must be between 0 and 99"
	}
	return ""
}

// sessionResponse is a session together with its computed pricing.
type sessionResponse struct {
	*models.Session
	Pricing *pricing.Result `json:"pricing,omitempty"`
}

// activityInputs converts the stored activity tree into engine input,
// preserving the stored order of activities and lines.
func activityInputs(activities []models.Activity) []pricing.ActivityInput {
	inputs := make([]pricing.ActivityInput, 0, len(activities))
	for _, a := range activities {
		in := pricing.ActivityInput{
			ID:        a.ID,
			Name:      a.Name,
			Materials: make([]pricing.Line, 0, len(a.Materials)),
		}
		for _, line := range a.Materials {
			in.Materials = append(in.Materials, pricing.Line{
				Material: pricing.Material{
					ID:        line.MaterialID,
					Name:      line.MaterialName,
					UnitType:  line.UnitType,
					PackPrice: line.PackPrice,
					PackSize:  line.PackSize,
				},
				Usage: pricing.Usage{
					QtyUsed:        line.QtyUsed,
					Mode:           pricing.ParseConsumptionMode(line.ConsumptionMode),
					GroupSize:      line.GroupSize,
					WastePct:       line.WastePct,
					ManualOverride: line.ManualOverride,
					ManualUnitCost: line.ManualUnitCost,
				},
			})
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// priceSession loads the session's activity tree and runs the pricing engine
// with the given student count and margin.
func (s *Service) priceSession(ctx context.Context, sessionID string, studentCount int, marginPct float64) (*pricing.Result, error) {
	activities, err := s.store.SessionActivities(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return pricing.ComputeSession(activityInputs(activities), studentCount, marginPct)
}

// canAccessSession enforces ownership for non-admin users.
func canAccessSession(ctx context.Context, session *models.Session) bool {
	if middleware.GetRole(ctx) == models.RoleAdmin {
		return true
	}
	return session.CreatedBy == middleware.GetUserID(ctx)
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := storage.SessionFilter{Status: r.URL.Query().Get("status")}
	if middleware.GetRole(r.Context()) != models.RoleAdmin {
		filter.CreatedBy = middleware.GetUserID(r.Context())
	}

	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	session := &models.Session{
		Name:          req.Name,
		ClientName:    req.ClientName,
		ClientContact: req.ClientContact,
		StudentCount:  req.StudentCount,
		MarginPct:     req.MarginPct,
		Status:        models.SessionDraft,
		Notes:         req.Notes,
		CreatedBy:     middleware.GetUserID(r.Context()),
		ActivityIDs:   req.ActivityIDs,
	}
	if err := s.store.CreateSession(r.Context(), session); err != nil {
		s.fail(w, err)
		return
	}

	s.respondWithPricing(w, r, session.ID, http.StatusCreated)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}

	result, err := s.priceSession(r.Context(), session.ID, session.StudentCount, session.MarginPct)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{Session: session, Pricing: result})
}

func (s *Service) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}
	if session.Status != models.SessionDraft && session.Status != models.SessionRejected {
		s.writeError(w, http.StatusConflict, "only draft or rejected sessions can be edited")
		return
	}

	var req sessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	session.Name = req.Name
	session.ClientName = req.ClientName
	session.ClientContact = req.ClientContact
	session.StudentCount = req.StudentCount
	session.MarginPct = req.MarginPct
	session.Notes = req.Notes
	session.ActivityIDs = req.ActivityIDs

	if err := s.store.UpdateSession(r.Context(), session, true); err != nil {
		s.fail(w, err)
		return
	}

	s.respondWithPricing(w, r, session.ID, http.StatusOK)
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}
	if session.Status == models.SessionApproved {
		s.writeError(w, http.StatusConflict, "approved sessions cannot be deleted")
		return
	}

	if err := s.store.DeleteSession(r.Context(), session.ID); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// respondWithPricing re-reads the session and answers with the joined fields
// and the engine output, the same shape the detail endpoint serves.
func (s *Service) respondWithPricing(w http.ResponseWriter, r *http.Request, sessionID string, status int) {
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	result, err := s.priceSession(r.Context(), session.ID, session.StudentCount, session.MarginPct)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, status, sessionResponse{Session: session, Pricing: result})
}

func (s *Service) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}
	if session.Status != models.SessionDraft && session.Status != models.SessionRejected {
		s.writeError(w, http.StatusConflict, "only draft or rejected sessions can be submitted")
		return
	}

	if err := s.store.UpdateSessionStatus(r.Context(), session.ID, models.SessionPending, "", ""); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("session submitted", "session_id", session.ID, "by", middleware.GetUserID(r.Context()))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": models.SessionPending})
}

func (s *Service) handleApproveSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if session.Status != models.SessionPending {
		s.writeError(w, http.StatusConflict, "only pending sessions can be approved")
		return
	}

	adminID := middleware.GetUserID(r.Context())
	if err := s.store.UpdateSessionStatus(r.Context(), session.ID, models.SessionApproved, "", adminID); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("session approved", "session_id", session.ID, "by", adminID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": models.SessionApproved})
}

func (s *Service) handleRejectSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if session.Status != models.SessionPending {
		s.writeError(w, http.StatusConflict, "only pending sessions can be rejected")
		return
	}

	if err := s.store.UpdateSessionStatus(r.Context(), session.ID, models.SessionRejected, req.Note, ""); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("session rejected", "session_id", session.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": models.SessionRejected})
}

// handleQuoteSession prices the session with optional student and margin
// overrides from the query string. Nothing is persisted; the stored session
// is untouched no matter what is passed.
func (s *Service) handleQuoteSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}

	students := session.StudentCount
	if raw := r.URL.Query().Get("students"); raw != "" {
		students, err = strconv.Atoi(raw)
		if err != nil || students < 0 {
			s.writeError(w, http.StatusBadRequest, "students must be a non-negative integer")
			return
		}
	}

	margin := session.MarginPct
	if raw := r.URL.Query().Get("margin"); raw != "" {
		margin, err = strconv.ParseFloat(raw, 64)
		if err != nil || margin < 0 {
			s.writeError(w, http.StatusBadRequest, "margin must be a non-negative number")
			return
		}
	}

	result, err := s.priceSession(r.Context(), session.ID, students, margin)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleExportSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}

	result, err := s.priceSession(r.Context(), session.ID, session.StudentCount, session.MarginPct)
	if err != nil {
		s.fail(w, err)
		return
	}

	f, err := export.CostReport(session, result)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="session-%s.xlsx"`, session.ID))
	if err := f.Write(w); err != nil {
		s.logger.Error("write xlsx", "error", err, "session_id", session.ID)
	}
}

func (s *Service) handleIssueInvoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if session.Status != models.SessionApproved {
		s.writeError(w, http.StatusConflict, "only approved sessions can be invoiced")
		return
	}

	// Issuing is idempotent: a second request returns the first invoice.
	if existing, err := s.store.GetInvoiceBySession(r.Context(), sessionID); err == nil {
		s.writeJSON(w, http.StatusOK, existing)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.fail(w, err)
		return
	}

	inv := &models.Invoice{
		SessionID: sessionID,
		IssuedBy:  middleware.GetUserID(r.Context()),
	}
	if err := s.store.CreateInvoice(r.Context(), inv); err != nil {
		s.fail(w, err)
		return
	}

	s.logger.Info("invoice issued", "session_id", sessionID, "number", inv.InvoiceNumber)
	s.writeJSON(w, http.StatusCreated, inv)
}

func (s *Service) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccessSession(r.Context(), session) {
		s.writeError(w, http.StatusForbidden, "not your session")
		return
	}

	inv, err := s.store.GetInvoiceBySession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}
