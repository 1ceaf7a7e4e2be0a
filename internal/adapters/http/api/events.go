package api

import (
	"context"
	"net/http"

	"github.com/okian/podium/internal/domain/analytics"
	"github.com/okian/podium/internal/domain/model"
)

// EventReadDependencies defines the interface for per-event reads.
type EventReadDependencies interface {
	Results(ctx context.Context, eventID string) ([]model.Result, error)
	Analyze(ctx context.Context, eventID string) (analytics.Snapshot, error)
}

// EventReadHandler serves results and analytics.
type EventReadHandler struct {
	deps EventReadDependencies
}

// NewEventReadHandler creates a new event read handler.
func NewEventReadHandler(deps EventReadDependencies) *EventReadHandler {
	return &EventReadHandler{deps: deps}
}

type resultsResponse struct {
	EventID string         `json:"event_id"`
	Results []model.Result `json:"results"`
}

// HandleResults handles GET /events/{eventID}/results requests.
func (h *EventReadHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	res, err := h.deps.Results(r.Context(), eventID)
	if err != nil {
		writeFailure(w, Wrap("api.get_results", err))
		return
	}
	if res == nil {
		res = []model.Result{}
	}
	writeJSON(w, http.StatusOK, resultsResponse{EventID: eventID, Results: res})
}

// HandleAnalytics handles GET /events/{eventID}/analytics requests.
func (h *EventReadHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Analyze(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFailure(w, Wrap("api.get_analytics", err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
