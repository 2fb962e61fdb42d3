package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/readtone/backend/internal/config"
)

// Envelopes larger than this are rejected outright.
const maxEnvelopeBytes = 1 << 20

// SentryTunnelHandler relays Sentry envelopes from the reader frontend through
// the backend, so browser error reporting works without the page talking to
// Sentry's ingest host directly.
type SentryTunnelHandler struct {
	cfg    *config.Config
	client *http.Client
}

// NewSentryTunnelHandler creates a SentryTunnelHandler with the given configuration.
func NewSentryTunnelHandler(cfg *config.Config) *SentryTunnelHandler {
	return &SentryTunnelHandler{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Tunnel reads a Sentry envelope from the request body and forwards it to the
// ingest endpoint derived from its DSN. Only envelopes addressed to the
// configured frontend DSN are forwarded.
func (h *SentryTunnelHandler) Tunnel(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SentryDSNFrontend == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	envelope, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// An envelope opens with a JSON header line naming the DSN it was sent to.
	headerLine := envelope
	if i := bytes.IndexByte(envelope, '\n'); i >= 0 {
		headerLine = envelope[:i]
	}

	var header struct {
		DSN string `json:"dsn"`
	}
	if err := json.Unmarshal(headerLine, &header); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if header.DSN != h.cfg.SentryDSNFrontend {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	ingestURL, err := envelopeIngestURL(header.DSN)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, ingestURL, bytes.NewReader(envelope))
	if err != nil {
		slog.Error("failed to build envelope forward request", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Error("failed to forward sentry envelope", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.StatusCode)
}

// envelopeIngestURL derives the ingest endpoint from a DSN of the form
// scheme://key@host/project-id.
func envelopeIngestURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	projectID := strings.Trim(u.Path, "/")
	if u.Scheme == "" || u.Host == "" || projectID == "" {
		return "", errors.New("malformed dsn")
	}
	return u.Scheme + "://" + u.Host + "/api/" + projectID + "/envelope/", nil
}
