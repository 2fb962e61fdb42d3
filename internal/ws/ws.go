// Package ws is the WebSocket transport for session audio. It upgrades
// client connections, maps their join/leave/pause/resume verbs onto the
// relay manager, and pushes the session's frames back out.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/readtone/backend/internal/logging"
	"github.com/readtone/backend/internal/relay"
)

// Handler upgrades HTTP requests into audio socket clients.
type Handler struct {
	manager  *relay.Manager
	upgrader websocket.Upgrader
}

// NewHandler creates the audio socket endpoint. Browser connections are
// accepted from the given origins; an empty list accepts any origin.
func NewHandler(manager *relay.Manager, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Native clients send no Origin header.
				if origin == "" || len(allowed) == 0 {
					return true
				}
				if allowed[origin] {
					return true
				}
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventOriginRejected,
					"websocket origin rejected")
				return false
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(conn, h.manager)
	slog.Info("websocket client connected", slog.String("client_id", client.id))

	go client.writePump()
	go client.readPump()
}
