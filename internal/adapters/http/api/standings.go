package api

import (
	"context"
	"net/http"
	"strconv"
)

// StandingsDependencies defines the interface for league standings.
type StandingsDependencies interface {
	Standings(ctx context.Context, eventID, leagueID string, limit int) ([]Entry, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps     StandingsDependencies
	maxLimit int
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies, maxLimit int) *StandingsHandler {
	return &StandingsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type standingsResponse struct {
	EventID  string  `json:"event_id"`
	LeagueID string  `json:"league_id"`
	Entries  []Entry `json:"entries"`
}

// HandleGetStandings handles GET /events/{eventID}/leagues/{leagueID}/standings?limit=N.
// Without limit the service default page size applies.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	eventID, leagueID := r.PathValue("eventID"), r.PathValue("leagueID")

	n := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if h.maxLimit > 0 && n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitTooHigh))
			return
		}
	}

	entries, err := h.deps.Standings(r.Context(), eventID, leagueID, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, standingsResponse{EventID: eventID, LeagueID: leagueID, Entries: entries})
}
