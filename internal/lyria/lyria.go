// Package lyria manages realtime sessions against the Lyria generative
// music service. A Session walks the connection through its lifecycle
// (connect, configure, stream, pause/resume, stop, close) and hands every
// received audio chunk to a caller-provided callback.
package lyria

import (
	"errors"
)

// Audio output parameters fixed by the service.
const (
	SampleRate  = 48000
	Channels    = 2
	AudioFormat = "pcm16"
)

var (
	// ErrNotConnected is returned when an operation requires an
	// established provider connection and there is none.
	ErrNotConnected = errors.New("session not connected")

	// ErrInvalidState is returned when an operation is issued from a
	// lifecycle state that does not allow it.
	ErrInvalidState = errors.New("invalid session state")
)

// WeightedPrompt steers the generated music toward a texture or genre.
// Weight is expected in (0, 1].
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Config holds the generation settings pushed to the service when a
// session is configured.
type Config struct {
	BPM         int
	Temperature float64
	Brightness  float64
	Density     float64
	Guidance    float64
}

// DefaultConfig returns the baseline settings for ambient reading music.
func DefaultConfig() Config {
	return Config{
		BPM:         80,
		Temperature: 1.0,
		Brightness:  0.5,
		Density:     0.5,
		Guidance:    4.0,
	}
}

// State names a point in the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConfigured
	StateStreaming
	StatePaused
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
