// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider modes selectable via PROVIDER_MODE.
const (
	ProviderModeLyria = "lyria"
	ProviderModeMock  = "mock"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string
	GeminiAPIKey       string
	ProviderMode       string
	ProviderEndpoint   string
	ProviderModel      string
	QueueCapacity      int
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
	SentryDSN          string
	SentryDSNFrontend  string
	SentryEnvironment  string
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	corsOrigins := getStringSliceEnv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		ProviderMode:       getEnv("PROVIDER_MODE", ProviderModeLyria),
		ProviderEndpoint:   getEnv("PROVIDER_ENDPOINT", "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeMusicService.BidiGenerateMusic"),
		ProviderModel:      getEnv("PROVIDER_MODEL", "models/lyria-realtime-exp"),
		QueueCapacity:      getIntEnv("QUEUE_CAPACITY", 100),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
		CORSAllowedOrigins: corsOrigins,
		TrustedProxies:     getStringSliceEnv("TRUSTED_PROXIES"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		SentryDSNFrontend:  getEnv("SENTRY_DSN_FRONTEND", ""),
		SentryEnvironment:  getEnv("SENTRY_ENVIRONMENT", "production"),
	}
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
