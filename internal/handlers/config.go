package handlers

import (
	"net/http"

	"github.com/readtone/backend/internal/lyria"
	"github.com/readtone/backend/internal/models"
)

type ConfigHandler struct{}

func NewConfigHandler() *ConfigHandler {
	return &ConfigHandler{}
}

// AudioConfig returns the fixed output format so clients can set up
// playback before the first chunk arrives.
func (h *ConfigHandler) AudioConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.AudioConfigResponse{
		SampleRate: lyria.SampleRate,
		Channels:   lyria.Channels,
		Format:     lyria.AudioFormat,
	})
}
