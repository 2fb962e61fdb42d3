package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/readtone/backend/internal/config"
	"github.com/readtone/backend/internal/logging"
	"github.com/readtone/backend/internal/lyria"
	"github.com/readtone/backend/internal/relay"
	"github.com/readtone/backend/internal/router"
	"github.com/readtone/backend/internal/sentry"
)

func main() {
	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	if cfg.ProviderMode == config.ProviderModeLyria && cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required when PROVIDER_MODE=lyria")
		os.Exit(1)
	}

	// Error tracking, enabled only when a DSN is configured
	if cfg.SentryDSN != "" {
		err := sentrygo.Init(sentrygo.ClientOptions{
			Dsn:                   cfg.SentryDSN,
			Environment:           cfg.SentryEnvironment,
			BeforeSend:            sentry.ScrubEvent,
			BeforeSendTransaction: sentry.ScrubTransaction,
		})
		if err != nil {
			slog.Error("sentry initialization failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentrygo.Flush(2 * time.Second)
	}

	var dialer lyria.Dialer
	switch cfg.ProviderMode {
	case config.ProviderModeMock:
		slog.Info("using mock music provider")
		dialer = &lyria.MockDialer{}
	default:
		dialer = &lyria.WebSocketDialer{
			Endpoint: cfg.ProviderEndpoint,
			Model:    cfg.ProviderModel,
			APIKey:   cfg.GeminiAPIKey,
		}
	}

	manager := relay.NewManager(dialer, cfg.QueueCapacity)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, manager),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("provider_mode", cfg.ProviderMode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}

	manager.Shutdown()
	slog.Info("shutdown complete")
}
