package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/domain/scoring"
)

// RecomputeDependencies defines the interface for manual recomputation.
type RecomputeDependencies interface {
	Recompute(ctx context.Context, eventID string) (scoring.Report, error)
	ScheduleRecompute(ctx context.Context, eventID, reason string) error
}

// RecomputeHandler handles recompute requests.
type RecomputeHandler struct {
	deps RecomputeDependencies
}

// NewRecomputeHandler creates a new recompute handler.
func NewRecomputeHandler(deps RecomputeDependencies) *RecomputeHandler {
	return &RecomputeHandler{deps: deps}
}

// HandleRecompute handles POST /events/{eventID}/recompute[?async=true].
func (h *RecomputeHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	eventID := r.PathValue("eventID")

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		async = b
	}

	if async {
		if err := h.deps.ScheduleRecompute(r.Context(), eventID, "api"); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "scheduled", EventID: eventID})
		return
	}

	report, err := h.deps.Recompute(r.Context(), eventID)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
