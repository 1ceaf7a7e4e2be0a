package api

import (
	"context"
	"net/http"

	"github.com/okian/podium/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the backing store answers.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and readiness requests.
type HealthHandler struct {
	checker ReadinessChecker
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests by serving Prometheus metrics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleReady handles GET /readyz requests.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap("api.ready", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
