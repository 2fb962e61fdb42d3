package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readtone/backend/internal/logging"
	"github.com/readtone/backend/internal/models"
	"github.com/readtone/backend/internal/relay"
)

// MusicHandler is the REST control plane for music sessions.
type MusicHandler struct {
	manager *relay.Manager
}

// NewMusicHandler creates a MusicHandler driving the given manager.
func NewMusicHandler(manager *relay.Manager) *MusicHandler {
	return &MusicHandler{manager: manager}
}

// Start creates a music session themed on the submitted book.
// Returns the session ID clients join over the audio socket, plus the
// derived prompts.
func (h *MusicHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Book.Title == "" {
		writeError(w, http.StatusBadRequest, "book title is required")
		return
	}

	id, prompts, err := h.manager.Start(r.Context(), relay.Book{
		Title:       req.Book.Title,
		Authors:     req.Book.Authors,
		Subjects:    req.Book.Subjects,
		Description: req.Book.Description,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create session", err)
		return
	}

	writeJSON(w, http.StatusOK, models.StartMusicResponse{
		SessionID: id,
		Prompts:   prompts,
	})
}

// Stop ends a session and disconnects its subscribers.
func (h *MusicHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithSessionID(r.Context(), id)

	if err := h.manager.Stop(id); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, "failed to stop session", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionActionResponse{Status: "stopped", SessionID: id})
}

// Pause halts playback without tearing the session down.
func (h *MusicHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithSessionID(r.Context(), id)

	if err := h.manager.Pause(id); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, "failed to pause session", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionActionResponse{Status: "paused", SessionID: id})
}

// Resume restarts playback of a paused session.
func (h *MusicHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithSessionID(r.Context(), id)

	if err := h.manager.Resume(id); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, "failed to resume session", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionActionResponse{Status: "playing", SessionID: id})
}

// Status returns whether a session is playing and its active prompts.
func (h *MusicHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.manager.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, models.SessionStatusResponse{
		SessionID: status.SessionID,
		IsPlaying: status.IsPlaying,
		Prompts:   status.Prompts,
	})
}

// UpdatePrompts replaces a session's weighted prompts while the music
// keeps playing.
func (h *MusicHandler) UpdatePrompts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithSessionID(r.Context(), id)

	var req models.UpdatePromptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Prompts) == 0 {
		writeError(w, http.StatusBadRequest, "at least one prompt is required")
		return
	}
	for _, p := range req.Prompts {
		if p.Text == "" {
			writeError(w, http.StatusBadRequest, "prompt text is required")
			return
		}
		if p.Weight <= 0 || p.Weight > 1 {
			writeError(w, http.StatusBadRequest, "prompt weights must be in (0, 1]")
			return
		}
	}

	if err := h.manager.UpdatePrompts(id, req.Prompts); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, "failed to update prompts", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionActionResponse{Status: "updated", SessionID: id})
}
