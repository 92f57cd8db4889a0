package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/farbklang/pkg/metrics"
)

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	provider StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(provider StatsProvider) *HealthHandler {
	return &HealthHandler{provider: provider}
}

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// HandleHealth handles GET /healthz requests. It answers 503 until the
// service has started.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if !h.provider.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Records: h.provider.Stats(r.Context()).Records})
}

// MetricsHandler serves the custom Prometheus registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
