package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
)

// WinnerDependencies defines the interface for winner ingestion.
type WinnerDependencies interface {
	IngestWinner(ctx context.Context, eventID string, c model.WinnerCandidate) (service.IngestReport, error)
	IngestWinners(ctx context.Context, eventID string, cs []model.WinnerCandidate) ([]service.IngestReport, error)
}

// winnersRequest accepts either one candidate or a batch under "winners".
type winnersRequest struct {
	Category string                  `json:"category"`
	Winner   string                  `json:"winner"`
	Winners  []model.WinnerCandidate `json:"winners"`
}

func (r winnersRequest) candidates() ([]model.WinnerCandidate, error) {
	if len(r.Winners) == 0 {
		r.Winners = []model.WinnerCandidate{{CategoryText: r.Category, WinnerText: r.Winner}}
	}
	for _, c := range r.Winners {
		switch {
		case strings.TrimSpace(c.CategoryText) == "":
			return nil, errors.New("missing category")
		case strings.TrimSpace(c.WinnerText) == "":
			return nil, errors.New("missing winner")
		}
	}
	return r.Winners, nil
}

type winnersResponse struct {
	EventID string                 `json:"event_id"`
	Reports []service.IngestReport `json:"reports"`
	Code    string                 `json:"code,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// WinnersHandler handles winner announcements.
type WinnersHandler struct {
	deps WinnerDependencies
}

// NewWinnersHandler creates a new winners handler.
func NewWinnersHandler(deps WinnerDependencies) *WinnersHandler {
	return &WinnersHandler{deps: deps}
}

// HandlePostWinners handles POST /events/{eventID}/winners requests.
// Unmatched candidates are not errors; their reports carry the reason.
func (h *WinnersHandler) HandlePostWinners(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_winners"
	eventID := r.PathValue("eventID")

	var req winnersRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	candidates, err := req.candidates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var reports []service.IngestReport
	if len(candidates) == 1 {
		var report service.IngestReport
		report, err = h.deps.IngestWinner(r.Context(), eventID, candidates[0])
		reports = []service.IngestReport{report}
	} else {
		reports, err = h.deps.IngestWinners(r.Context(), eventID, candidates)
	}

	resp := winnersResponse{EventID: eventID, Reports: reports}
	if err != nil {
		status, code := statusFor(err)
		resp.Code = code
		resp.Error = Wrap(op, err).Error()
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
