package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/readtone/backend/internal/config"
	"github.com/readtone/backend/internal/handlers"
	"github.com/readtone/backend/internal/middleware"
	"github.com/readtone/backend/internal/relay"
	"github.com/readtone/backend/internal/ws"
)

func New(cfg *config.Config, manager *relay.Manager) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg)
	configHandler := handlers.NewConfigHandler()
	metricsHandler := handlers.NewMetricsHandler(manager)
	musicHandler := handlers.NewMusicHandler(manager)
	sentryTunnelHandler := handlers.NewSentryTunnelHandler(cfg)
	wsHandler := ws.NewHandler(manager, cfg.CORSAllowedOrigins)

	// Starting a session dials the provider; rate limit it per client IP.
	startRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Health)

		// Audio format clients must decode
		r.Get("/config", configHandler.AudioConfig)

		// Streaming counters
		r.Get("/metrics", metricsHandler.Metrics)

		// Frontend error reports, relayed to Sentry
		r.Post("/sentry-tunnel", sentryTunnelHandler.Tunnel)

		// Music session control plane
		r.Route("/music", func(r chi.Router) {
			r.With(startRateLimiter.Middleware).Post("/start", musicHandler.Start)
			r.Post("/stop/{id}", musicHandler.Stop)
			r.Post("/pause/{id}", musicHandler.Pause)
			r.Post("/resume/{id}", musicHandler.Resume)
			r.Get("/status/{id}", musicHandler.Status)
			r.Put("/prompts/{id}", musicHandler.UpdatePrompts)
		})
	})

	// Audio socket
	r.Handle("/ws", wsHandler)

	return r
}
