package models

import "github.com/readtone/backend/internal/lyria"

// Music session management
type BookMetadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Description string   `json:"description,omitempty"`
}

type StartMusicRequest struct {
	Book BookMetadata `json:"book"`
}

type StartMusicResponse struct {
	SessionID string                 `json:"sessionId"`
	Prompts   []lyria.WeightedPrompt `json:"prompts"`
}

type SessionActionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId"`
}

type SessionStatusResponse struct {
	SessionID string                 `json:"sessionId"`
	IsPlaying bool                   `json:"isPlaying"`
	Prompts   []lyria.WeightedPrompt `json:"prompts"`
}

type UpdatePromptsRequest struct {
	Prompts []lyria.WeightedPrompt `json:"prompts"`
}

// Service status
type HealthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
}

type AudioConfigResponse struct {
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	Format     string `json:"format"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
