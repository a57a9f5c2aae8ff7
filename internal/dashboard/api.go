package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trackboard/trackboard/internal/creds"
	"github.com/trackboard/trackboard/internal/status"
	"github.com/trackboard/trackboard/internal/tracker"
)

// CampaignsResponse is the response for GET /api/v1/campaigns
type CampaignsResponse struct {
	Items []tracker.Campaign `json:"items"`
	Total tracker.Stat       `json:"total"`
}

// ReportResponse is the response for GET /api/v1/report
type ReportResponse struct {
	Items []tracker.Row `json:"items"`
	Total tracker.Row   `json:"total"`
	// Status is the effective flag per row key after the overlay merge
	Status map[string]bool `json:"status"`
}

// StatusSetRequest is the request body for PUT /api/v1/status/{campaignID}/{key}
type StatusSetRequest struct {
	Active bool `json:"active"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// APICampaigns handles GET /api/v1/campaigns
func (h *Handlers) APICampaigns(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	from, to, err := parseDateRange(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.tracker.Campaigns(r.Context(), tracker.CampaignQuery{
		APIKey:   s.APIKey,
		DateFrom: from,
		DateTo:   to,
	})
	if h.sendFetchError(w, s, err) {
		return
	}

	h.sendJSON(w, http.StatusOK, CampaignsResponse{Items: items, Total: total})
}

// APIReport handles GET /api/v1/report
func (h *Handlers) APIReport(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	campaignID := r.URL.Query().Get("campaign_id")
	if campaignID == "" {
		h.sendError(w, http.StatusBadRequest, "campaign_id is required")
		return
	}

	params, err := parseReportParams(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	seqKey := s.ID + "|" + campaignID
	ctx, seq := h.seq.Begin(r.Context(), seqKey)

	rows, totals, err := h.tracker.Report(ctx, tracker.ReportQuery{
		APIKey:     s.APIKey,
		CampaignID: campaignID,
		DateFrom:   params.from,
		DateTo:     params.to,
		Group:      params.group,
		SortBy:     params.sortBy,
		Direction:  params.direction,
	})
	if h.dropIfStale(w, seqKey, seq, err) {
		return
	}
	if h.sendFetchError(w, s, err) {
		return
	}

	persisted := status.CampaignStatus{}
	all, err := h.store.GetAll(r.Context(), s.APIKey)
	switch {
	case errors.Is(err, status.ErrPermissionDenied):
		h.sendError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		h.logger.Error("status read failed", "campaign_id", campaignID, "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to read status flags")
		return
	default:
		persisted = all.Get(campaignID)
	}

	h.sendJSON(w, http.StatusOK, ReportResponse{
		Items:  rows,
		Total:  totals,
		Status: status.Effective(tracker.StatusKeys(rows, params.group), persisted),
	})
}

// APIStatusSet handles PUT /api/v1/status/{campaignID}/{key}
func (h *Handlers) APIStatusSet(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	campaignID := chi.URLParam(r, "campaignID")
	key := chi.URLParam(r, "key")

	var req StatusSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetOne(r.Context(), s.APIKey, campaignID, key, req.Active); err != nil {
		h.logger.Error("status write failed", "campaign_id", campaignID, "key", key, "error", err)
		if errors.Is(err, status.ErrPermissionDenied) {
			h.sendError(w, http.StatusForbidden, err.Error())
			return
		}
		h.sendError(w, http.StatusBadGateway, "failed to persist status flag")
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"key":         key,
		"active":      req.Active,
	})
}

// sendFetchError translates report fetcher errors into API responses.
// Returns true when the response has been written.
func (h *Handlers) sendFetchError(w http.ResponseWriter, s *creds.Session, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, tracker.ErrAuthRejected):
		// The key is invalid for the upstream; stop replaying it.
		if derr := h.sessions.DeleteByAPIKey(s.APIKey); derr != nil {
			h.logger.Error("failed to delete sessions for rejected key", "error", derr)
		}
		h.sendError(w, http.StatusUnauthorized, "reporting service rejected API key")
	case errors.Is(err, tracker.ErrInvalidQuery):
		h.sendError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("upstream fetch failed", "error", err)
		h.sendError(w, http.StatusBadGateway, "reporting service unavailable")
	}
	return true
}

func (h *Handlers) sendJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) sendError(w http.ResponseWriter, code int, message string) {
	h.sendJSON(w, code, ErrorResponse{Error: message})
}
