package handlers

import (
	"net/http"

	"github.com/readtone/backend/internal/config"
	"github.com/readtone/backend/internal/models"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Health reports liveness plus whether a provider API key is present,
// so a misconfigured deployment shows up without starting a session.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		APIKeyConfigured: h.cfg.GeminiAPIKey != "",
	})
}
