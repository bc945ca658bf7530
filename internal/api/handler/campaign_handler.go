package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/lettercast/campaign-engine/internal/api/middleware"
	"github.com/lettercast/campaign-engine/internal/domain"
	"github.com/lettercast/campaign-engine/internal/service"
)

// CampaignHandler handles the campaign lifecycle endpoints.
type CampaignHandler struct {
	dispatch *service.DispatchService
	tracker  *service.TrackerService
	logger   *zap.Logger
}

func NewCampaignHandler(dispatch *service.DispatchService, tracker *service.TrackerService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{dispatch: dispatch, tracker: tracker, logger: logger}
}

type scheduleRequest struct {
	SendAt time.Time `json:"send_at"`
}

type sendTestRequest struct {
	Email string `json:"email"`
}

// Create handles POST /api/v1/campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
		return
	}

	c, err := h.dispatch.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create campaign failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// List handles GET /api/v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	campaigns, total, err := h.dispatch.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []*domain.Campaign{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  campaigns,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// GetByID handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, pending, err := h.dispatch.Get(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"campaign":           c,
		"pending_recipients": pending,
	})
}

// Schedule handles POST /api/v1/campaigns/{id}/schedule
func (h *CampaignHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SendAt.IsZero() {
		respondError(w, http.StatusBadRequest, "invalid_body", "send_at (RFC3339) is required")
		return
	}

	if err := h.dispatch.Schedule(r.Context(), id, req.SendAt); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  string(domain.StatusScheduled),
		"send_at": req.SendAt.Format(time.RFC3339),
	})
}

// Unschedule handles DELETE /api/v1/campaigns/{id}/schedule
func (h *CampaignHandler) Unschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.dispatch.Unschedule(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/campaigns/{id}/send
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.dispatch.InitiateSending(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNoSubscribers) {
			// The campaign still completed (zero recipients), but the
			// caller should know nothing went out.
			mapError(w, err)
			return
		}
		h.logger.Warn("initiate sending failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("campaign_id", id.String()),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": string(domain.StatusSending)})
}

// SendTest handles POST /api/v1/campaigns/{id}/send-test
func (h *CampaignHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req sendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
		return
	}

	if err := h.dispatch.SendTest(r.Context(), id, req.Email); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "test_sent"})
}

// Archive handles POST /api/v1/campaigns/{id}/archive
func (h *CampaignHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.dispatch.Archive(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusArchived)})
}

// Stats handles GET /api/v1/campaigns/{id}/stats
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if _, _, err := h.dispatch.Get(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	stats, err := h.tracker.Stats(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "failed to aggregate stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "campaign id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseListFilter(r *http.Request) domain.ListFilter {
	f := domain.ListFilter{Page: 1, Limit: 20}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.Status(s)
		f.Status = &status
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		f.Page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		f.Limit = l
	}
	return f
}
