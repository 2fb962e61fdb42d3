package lyria

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Session drives one generation session through its lifecycle:
// Connect, Configure, Start, optional Pause/Resume and prompt updates,
// then Stop and Close. All methods are safe for concurrent use.
type Session struct {
	dialer Dialer

	mu      sync.Mutex
	state   State
	conn    Conn
	prompts []WeightedPrompt
	config  Config

	cancelRecv context.CancelFunc
	recvDone   chan struct{}
}

// NewSession returns a session in the disconnected state.
func NewSession(dialer Dialer) *Session {
	return &Session{dialer: dialer}
}

// Connect establishes the provider connection. Dial failures leave the
// session disconnected and are returned to the caller; there is no
// internal retry.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return ErrInvalidState
	}

	slog.Info("connecting to music provider")
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}

	s.conn = conn
	s.state = StateConnected
	slog.Info("music provider connected")
	return nil
}

// Configure pushes prompts and generation settings to the service. It
// may be called again while streaming to change the music without
// interrupting playback.
func (s *Session) Configure(prompts []WeightedPrompt, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.state == StateClosed {
		return ErrNotConnected
	}

	texts := make([]string, len(prompts))
	for i, p := range prompts {
		texts[i] = p.Text
	}
	slog.Info("setting music prompts", slog.Any("prompts", texts))
	if err := s.conn.Send(ClientMessage{ClientContent: &ClientContent{WeightedPrompts: prompts}}); err != nil {
		return fmt.Errorf("set prompts: %w", err)
	}

	slog.Info("setting generation config",
		slog.Int("bpm", cfg.BPM),
		slog.Float64("brightness", cfg.Brightness),
		slog.Float64("density", cfg.Density))
	if err := s.conn.Send(ClientMessage{MusicGenerationConfig: &GenerationConfig{
		BPM:         cfg.BPM,
		Temperature: cfg.Temperature,
		Brightness:  cfg.Brightness,
		Density:     cfg.Density,
		Guidance:    cfg.Guidance,
	}}); err != nil {
		return fmt.Errorf("set generation config: %w", err)
	}

	s.prompts = append([]WeightedPrompt(nil), prompts...)
	s.config = cfg
	if s.state == StateConnected {
		s.state = StateConfigured
	}
	return nil
}

// Start issues the play command and spawns the receive loop, which
// invokes onChunk once per received audio chunk. onChunk must return
// quickly; a slow consumer has to buffer or drop on its side.
func (s *Session) Start(onChunk func(chunk []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}
	if s.state != StateConfigured {
		return ErrInvalidState
	}

	slog.Info("starting playback")
	if err := s.conn.Send(ClientMessage{PlaybackControl: playbackPlay}); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRecv = cancel
	s.recvDone = make(chan struct{})
	s.state = StateStreaming
	go s.receiveLoop(ctx, s.conn, onChunk)
	return nil
}

// receiveLoop forwards audio chunks to onChunk until the stream ends or
// the loop is cancelled. Cancellation is observed before each receive,
// discarding any chunk that raced in.
func (s *Session) receiveLoop(ctx context.Context, conn Conn, onChunk func(chunk []byte)) {
	defer close(s.recvDone)

	slog.Info("receive loop started")
	chunkCount := 0
	totalBytes := 0

	messages := conn.Messages()
	for {
		select {
		case <-ctx.Done():
			slog.Info("receive loop cancelled",
				slog.Int("chunks_received", chunkCount),
				slog.Int("total_bytes", totalBytes))
			return
		case msg, ok := <-messages:
			if !ok {
				slog.Info("provider stream ended",
					slog.Int("chunks_received", chunkCount),
					slog.Int("total_bytes", totalBytes))
				return
			}

			if msg.FilteredPrompt != nil {
				slog.Warn("prompt filtered by provider",
					slog.String("prompt", msg.FilteredPrompt.Text),
					slog.String("reason", msg.FilteredPrompt.FilteredReason))
			}
			if msg.ServerContent == nil {
				continue
			}

			for _, chunk := range msg.ServerContent.AudioChunks {
				if len(chunk.Data) == 0 {
					continue
				}
				chunkCount++
				totalBytes += len(chunk.Data)
				if chunkCount%50 == 1 {
					slog.Debug("audio chunk received",
						slog.Int("chunk_number", chunkCount),
						slog.Int("chunk_size", len(chunk.Data)))
				}
				onChunk(chunk.Data)
			}
		}
	}
}

// UpdatePrompts re-sends prompt weights while the session is live.
func (s *Session) UpdatePrompts(prompts []WeightedPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.state == StateClosed {
		return ErrNotConnected
	}

	if err := s.conn.Send(ClientMessage{ClientContent: &ClientContent{WeightedPrompts: prompts}}); err != nil {
		return fmt.Errorf("update prompts: %w", err)
	}
	s.prompts = append([]WeightedPrompt(nil), prompts...)
	return nil
}

// Pause halts playback. A no-op unless currently streaming.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return nil
	}
	if err := s.conn.Send(ClientMessage{PlaybackControl: playbackPause}); err != nil {
		return fmt.Errorf("pause playback: %w", err)
	}
	s.state = StatePaused
	return nil
}

// Resume restarts playback. A no-op unless currently paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return nil
	}
	if err := s.conn.Send(ClientMessage{PlaybackControl: playbackPlay}); err != nil {
		return fmt.Errorf("resume playback: %w", err)
	}
	s.state = StateStreaming
	return nil
}

// IsPlaying reports whether audio is currently streaming.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStreaming
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Prompts returns a copy of the active weighted prompts.
func (s *Session) Prompts() []WeightedPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WeightedPrompt(nil), s.prompts...)
}

// Stop cancels the receive loop, waits for it to finish, then issues
// the stop command. Provider errors are logged, not returned; stop is
// idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelRecv
	done := s.recvDone
	conn := s.conn
	s.cancelRecv = nil
	s.state = StateStopped
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if conn != nil {
		if err := conn.Send(ClientMessage{PlaybackControl: playbackStop}); err != nil {
			slog.Error("stop playback failed", slog.Any("error", err))
		} else {
			slog.Info("music session stopped")
		}
	}
}

// Close stops the session and releases the connection. Idempotent.
func (s *Session) Close() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			slog.Error("close provider connection failed", slog.Any("error", err))
		} else {
			slog.Info("music session closed")
		}
	}
	s.state = StateClosed
}
