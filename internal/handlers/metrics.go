package handlers

import (
	"net/http"

	"github.com/readtone/backend/internal/relay"
)

type MetricsHandler struct {
	manager *relay.Manager
}

func NewMetricsHandler(manager *relay.Manager) *MetricsHandler {
	return &MetricsHandler{manager: manager}
}

// Metrics returns process totals and per-session streaming counters.
// Reading is side-effect free and safe to poll.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Metrics())
}
