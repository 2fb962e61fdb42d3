package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/readtone/backend/internal/lyria"
	"github.com/readtone/backend/internal/models"
	"github.com/readtone/backend/internal/relay"
)

// failDialer simulates an unreachable music provider.
type failDialer struct{}

func (failDialer) Dial(ctx context.Context) (lyria.Conn, error) {
	return nil, errors.New("dial provider: connection refused")
}

// musicRequest builds a request with chi URL params injected, matching
// how the router invokes the handlers.
func musicRequest(method, path string, body []byte, urlParams map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range urlParams {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)

	return req.WithContext(ctx)
}

func startHandlerSession(t *testing.T, h *MusicHandler) string {
	t.Helper()
	body, _ := json.Marshal(models.StartMusicRequest{Book: models.BookMetadata{
		Title:    "The Shining",
		Subjects: []string{"Horror"},
	}})
	req := musicRequest(http.MethodPost, "/api/music/start", body, nil)
	rec := httptest.NewRecorder()

	h.Start(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Start status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.StartMusicResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode start response: %v", err)
	}
	return resp.SessionID
}

func TestStartMusic(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
	}{
		{
			name: "valid book",
			body: mustMarshal(models.StartMusicRequest{Book: models.BookMetadata{
				Title:       "The Shining",
				Authors:     []string{"Stephen King"},
				Subjects:    []string{"Horror"},
				Description: "A dark and haunting story",
			}}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid JSON",
			body:           []byte("not json"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing title",
			body:           mustMarshal(models.StartMusicRequest{Book: models.BookMetadata{Subjects: []string{"Horror"}}}),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMusicHandler(newTestManager(t))

			req := musicRequest(http.MethodPost, "/api/music/start", tt.body, nil)
			rec := httptest.NewRecorder()

			handler.Start(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusOK {
				var resp models.StartMusicResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.SessionID == "" {
					t.Error("expected a session id")
				}
				if len(resp.Prompts) == 0 || len(resp.Prompts) > 5 {
					t.Errorf("expected 1-5 prompts, got %d", len(resp.Prompts))
				}
				for _, p := range resp.Prompts {
					if p.Weight <= 0 || p.Weight > 1 {
						t.Errorf("prompt %q has weight %v outside (0, 1]", p.Text, p.Weight)
					}
				}
			}
		})
	}
}

func TestStartMusicProviderUnavailable(t *testing.T) {
	manager := relay.NewManager(failDialer{}, 100)
	handler := NewMusicHandler(manager)

	body := mustMarshal(models.StartMusicRequest{Book: models.BookMetadata{Title: "Dune"}})
	req := musicRequest(http.MethodPost, "/api/music/start", body, nil)
	rec := httptest.NewRecorder()

	handler.Start(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != "failed to create session" {
		t.Errorf("Error = %q, want %q", resp.Error, "failed to create session")
	}
}

func TestSessionLifecycle(t *testing.T) {
	handler := NewMusicHandler(newTestManager(t))
	id := startHandlerSession(t, handler)

	// Status reports a playing session.
	rec := httptest.NewRecorder()
	handler.Status(rec, musicRequest(http.MethodGet, "/api/music/status/"+id, nil, map[string]string{"id": id}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Status status = %d, want %d", rec.Code, http.StatusOK)
	}
	var status models.SessionStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}
	if status.SessionID != id || !status.IsPlaying {
		t.Errorf("unexpected status %+v", status)
	}
	if len(status.Prompts) == 0 {
		t.Error("expected prompts in status")
	}

	// Pause.
	rec = httptest.NewRecorder()
	handler.Pause(rec, musicRequest(http.MethodPost, "/api/music/pause/"+id, nil, map[string]string{"id": id}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Pause status = %d, want %d", rec.Code, http.StatusOK)
	}
	var action models.SessionActionResponse
	json.NewDecoder(rec.Body).Decode(&action)
	if action.Status != "paused" || action.SessionID != id {
		t.Errorf("unexpected pause response %+v", action)
	}

	rec = httptest.NewRecorder()
	handler.Status(rec, musicRequest(http.MethodGet, "/api/music/status/"+id, nil, map[string]string{"id": id}))
	json.NewDecoder(rec.Body).Decode(&status)
	if status.IsPlaying {
		t.Error("expected the session to report paused")
	}

	// Resume.
	rec = httptest.NewRecorder()
	handler.Resume(rec, musicRequest(http.MethodPost, "/api/music/resume/"+id, nil, map[string]string{"id": id}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Resume status = %d, want %d", rec.Code, http.StatusOK)
	}
	json.NewDecoder(rec.Body).Decode(&action)
	if action.Status != "playing" {
		t.Errorf("Resume status = %q, want %q", action.Status, "playing")
	}

	// Stop.
	rec = httptest.NewRecorder()
	handler.Stop(rec, musicRequest(http.MethodPost, "/api/music/stop/"+id, nil, map[string]string{"id": id}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Stop status = %d, want %d", rec.Code, http.StatusOK)
	}
	json.NewDecoder(rec.Body).Decode(&action)
	if action.Status != "stopped" {
		t.Errorf("Stop status = %q, want %q", action.Status, "stopped")
	}

	// The session is gone afterwards.
	rec = httptest.NewRecorder()
	handler.Status(rec, musicRequest(http.MethodGet, "/api/music/status/"+id, nil, map[string]string{"id": id}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status after stop = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSessionActionsUnknownID(t *testing.T) {
	handler := NewMusicHandler(newTestManager(t))
	params := map[string]string{"id": "missing"}
	promptsBody := mustMarshal(models.UpdatePromptsRequest{
		Prompts: []lyria.WeightedPrompt{{Text: "Calm Piano", Weight: 0.5}},
	})

	tests := []struct {
		name string
		call func(rec *httptest.ResponseRecorder)
	}{
		{"stop", func(rec *httptest.ResponseRecorder) {
			handler.Stop(rec, musicRequest(http.MethodPost, "/api/music/stop/missing", nil, params))
		}},
		{"pause", func(rec *httptest.ResponseRecorder) {
			handler.Pause(rec, musicRequest(http.MethodPost, "/api/music/pause/missing", nil, params))
		}},
		{"resume", func(rec *httptest.ResponseRecorder) {
			handler.Resume(rec, musicRequest(http.MethodPost, "/api/music/resume/missing", nil, params))
		}},
		{"status", func(rec *httptest.ResponseRecorder) {
			handler.Status(rec, musicRequest(http.MethodGet, "/api/music/status/missing", nil, params))
		}},
		{"update prompts", func(rec *httptest.ResponseRecorder) {
			handler.UpdatePrompts(rec, musicRequest(http.MethodPut, "/api/music/prompts/missing", promptsBody, params))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec)
			if rec.Code != http.StatusNotFound {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}
}

func TestUpdatePrompts(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
	}{
		{
			name: "valid prompts",
			body: mustMarshal(models.UpdatePromptsRequest{Prompts: []lyria.WeightedPrompt{
				{Text: "Calm Piano", Weight: 0.9},
				{Text: "Rain", Weight: 0.3},
			}}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid JSON",
			body:           []byte("{"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no prompts",
			body:           mustMarshal(models.UpdatePromptsRequest{}),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "empty prompt text",
			body: mustMarshal(models.UpdatePromptsRequest{Prompts: []lyria.WeightedPrompt{
				{Text: "", Weight: 0.5},
			}}),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "weight out of range",
			body: mustMarshal(models.UpdatePromptsRequest{Prompts: []lyria.WeightedPrompt{
				{Text: "Calm Piano", Weight: 1.5},
			}}),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMusicHandler(newTestManager(t))
			id := startHandlerSession(t, handler)

			req := musicRequest(http.MethodPut, "/api/music/prompts/"+id, tt.body, map[string]string{"id": id})
			rec := httptest.NewRecorder()

			handler.UpdatePrompts(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status = %d, want %d: %s", rec.Code, tt.expectedStatus, rec.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				statusRec := httptest.NewRecorder()
				handler.Status(statusRec, musicRequest(http.MethodGet, "/api/music/status/"+id, nil, map[string]string{"id": id}))
				var status models.SessionStatusResponse
				if err := json.NewDecoder(statusRec.Body).Decode(&status); err != nil {
					t.Fatalf("Failed to decode status response: %v", err)
				}
				if len(status.Prompts) != 2 || status.Prompts[0].Text != "Calm Piano" {
					t.Errorf("expected replaced prompts, got %+v", status.Prompts)
				}
			}
		})
	}
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}
