// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/podium/internal/domain/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	WinnerDependencies
	RecomputeDependencies
	EventReadDependencies
	StandingsDependencies
	ReadinessChecker
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	winnersHandler   *WinnersHandler
	recomputeHandler *RecomputeHandler
	eventsHandler    *EventReadHandler
	standingsHandler *StandingsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// standings page size.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(statsProvider),
		winnersHandler:   NewWinnersHandler(deps),
		recomputeHandler: NewRecomputeHandler(deps),
		eventsHandler:    NewEventReadHandler(deps),
		standingsHandler: NewStandingsHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events/{eventID}/winners", MetricsMiddleware(s.winnersHandler.HandlePostWinners, "winners"))
	mux.HandleFunc("POST /events/{eventID}/recompute", MetricsMiddleware(s.recomputeHandler.HandleRecompute, "recompute"))
	mux.HandleFunc("GET /events/{eventID}/results", MetricsMiddleware(s.eventsHandler.HandleResults, "results"))
	mux.HandleFunc("GET /events/{eventID}/analytics", MetricsMiddleware(s.eventsHandler.HandleAnalytics, "analytics"))
	mux.HandleFunc("GET /events/{eventID}/leagues/{leagueID}/standings",
		MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
}

type ackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
