// Package relay owns the session audio pipeline. A Manager keys live
// music sessions by id, buffers each session's provider audio in a
// bounded queue, and fans the chunks out to subscribed clients. One
// Manager serves the whole process.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/readtone/backend/internal/lyria"
	"github.com/readtone/backend/internal/mood"
)

// ErrSessionNotFound is returned for operations on an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

const (
	// broadcastWait bounds each queue wait so the loop can notice a
	// removed session even when no audio is flowing.
	broadcastWait = time.Second

	progressLogInterval = 50
)

// Book is the metadata a session's music is derived from.
type Book struct {
	Title       string
	Authors     []string
	Subjects    []string
	Description string
}

// SessionStatus is a point-in-time view of one session's playback.
type SessionStatus struct {
	SessionID string
	IsPlaying bool
	Prompts   []lyria.WeightedPrompt
}

// JoinStatus is the snapshot handed to a subscriber when it joins.
type JoinStatus struct {
	SessionID  string
	IsPlaying  bool
	SampleRate int
	Channels   int
	Format     string
}

// Manager is the registry of live music sessions. It enforces at most
// one provider session per id, owns session setup and teardown, and
// exposes the control operations the transport layers call.
type Manager struct {
	dialer        lyria.Dialer
	queueCapacity int
	startTime     time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager that opens provider connections through
// dialer and buffers up to queueCapacity chunks per session.
func NewManager(dialer lyria.Dialer, queueCapacity int) *Manager {
	return &Manager{
		dialer:        dialer,
		queueCapacity: queueCapacity,
		startTime:     time.Now().UTC(),
		sessions:      make(map[string]*session),
	}
}

// Start derives music prompts from the book, opens and configures a
// provider session, and begins relaying its audio. On any setup failure
// the error is returned and no session artifacts remain.
func (m *Manager) Start(ctx context.Context, book Book) (string, []lyria.WeightedPrompt, error) {
	return m.startWithID(ctx, uuid.New().String(), book)
}

func (m *Manager) startWithID(ctx context.Context, id string, book Book) (string, []lyria.WeightedPrompt, error) {
	slog.Info("session start requested",
		slog.String("session_id", id),
		slog.String("book_title", book.Title))

	prompts, params := mood.Derive(book.Title, book.Subjects, book.Description, book.Authors)
	cfg := lyria.DefaultConfig()
	cfg.BPM = mood.RecommendedBPM(book.Subjects)
	cfg.Brightness = params.Brightness
	cfg.Density = params.Density

	// An id maps to at most one live session; tear down any predecessor
	// before dialing its replacement.
	m.mu.Lock()
	existing := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if existing != nil {
		m.destroy(existing)
	}

	provider := lyria.NewSession(m.dialer)
	if err := provider.Connect(ctx); err != nil {
		return "", nil, fmt.Errorf("connect session: %w", err)
	}
	if err := provider.Configure(prompts, cfg); err != nil {
		provider.Close()
		return "", nil, fmt.Errorf("configure session: %w", err)
	}

	s := &session{
		id:            id,
		provider:      provider,
		queue:         NewQueue(m.queueCapacity),
		metrics:       newSessionMetrics(book.Title),
		subscribers:   make(map[string]Subscriber),
		broadcastDone: make(chan struct{}),
	}

	if err := provider.Start(s.onChunk); err != nil {
		provider.Close()
		return "", nil, fmt.Errorf("start streaming: %w", err)
	}

	bctx, cancel := context.WithCancel(context.Background())
	s.cancelBroadcast = cancel

	m.mu.Lock()
	prev := m.sessions[id]
	m.sessions[id] = s
	m.mu.Unlock()
	go m.broadcastLoop(bctx, s)
	if prev != nil {
		// Lost a same-id race between teardown and insert; the newcomer
		// stays registered and the stale session is destroyed.
		m.destroy(prev)
	}

	texts := make([]string, len(prompts))
	for i, p := range prompts {
		texts[i] = p.Text
	}
	slog.Info("session started",
		slog.String("session_id", id),
		slog.String("book_title", book.Title),
		slog.Int("bpm", cfg.BPM),
		slog.Any("prompts", texts))

	return id, prompts, nil
}

// broadcastLoop drains a session's queue and fans each chunk out to the
// current subscribers. It exits on cancellation or once the session is
// no longer registered. Queue depth is sampled before each dequeue so
// the peak-depth metric reflects what the consumer actually saw.
func (m *Manager) broadcastLoop(ctx context.Context, s *session) {
	defer close(s.broadcastDone)

	slog.Info("broadcast loop started", slog.String("session_id", s.id))

	for {
		s.metrics.observeQueueDepth(s.queue.Len())

		chunk, ok := s.queue.Dequeue(ctx, broadcastWait)
		if !ok {
			if ctx.Err() != nil {
				break
			}
			// Timed out with no audio: keep waiting while the session
			// is registered, exit once it is gone.
			if !m.exists(s.id) {
				break
			}
			continue
		}

		s.broadcast(AudioFrame(chunk))

		sent := s.metrics.addSent(len(chunk))
		if sent%progressLogInterval == 0 {
			slog.Info("audio streaming progress",
				slog.String("session_id", s.id),
				slog.Int64("chunks_sent", sent),
				slog.Int64("bytes_sent", s.metrics.bytesSent.Load()))
		}
	}

	slog.Info("broadcast loop ended",
		slog.String("session_id", s.id),
		slog.Int64("chunks_sent", s.metrics.chunksSent.Load()),
		slog.Int64("bytes_sent", s.metrics.bytesSent.Load()))
}

func (m *Manager) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

func (m *Manager) get(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Stop tears a session down: the broadcast loop is cancelled and
// awaited, subscribers are told the session stopped and detached, and
// the provider session is closed. Unknown ids return ErrSessionNotFound,
// which makes a repeated Stop harmless.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.destroy(s)
	return nil
}

// destroy completes a session's teardown. The caller must have already
// removed it from the registry; whoever removes an entry owns destroying
// it, so each session is destroyed exactly once.
func (m *Manager) destroy(s *session) {
	slog.Info("session stopping",
		slog.String("session_id", s.id),
		slog.Int64("chunks_sent", s.metrics.chunksSent.Load()),
		slog.Int64("bytes_sent", s.metrics.bytesSent.Load()),
		slog.Int64("chunks_dropped", s.metrics.chunksDropped.Load()),
		slog.Float64("duration_seconds", round1(time.Since(s.metrics.startTime).Seconds())))

	// The loop must be fully stopped before anything else goes away so
	// no delivery races with teardown.
	if s.cancelBroadcast != nil {
		s.cancelBroadcast()
		<-s.broadcastDone
	}

	stopped := StoppedFrame(s.id)
	for _, sub := range s.detachAll() {
		// Best effort: a failing subscriber is being detached anyway.
		_ = sub.Deliver(stopped)
	}

	s.provider.Close()
	slog.Info("session stopped", slog.String("session_id", s.id))
}

// Pause halts playback and tells the session's subscribers. Pausing a
// session that is not streaming is a no-op at the provider.
func (m *Manager) Pause(id string) error {
	s := m.get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	if err := s.provider.Pause(); err != nil {
		return err
	}
	slog.Info("session paused", slog.String("session_id", id))
	s.broadcast(StatusFrame(false))
	return nil
}

// Resume restarts playback and tells the session's subscribers.
func (m *Manager) Resume(id string) error {
	s := m.get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	if err := s.provider.Resume(); err != nil {
		return err
	}
	slog.Info("session resumed", slog.String("session_id", id))
	s.broadcast(StatusFrame(true))
	return nil
}

// Status reports whether a session is playing and its active prompts.
func (m *Manager) Status(id string) (*SessionStatus, error) {
	s := m.get(id)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return &SessionStatus{
		SessionID: id,
		IsPlaying: s.provider.IsPlaying(),
		Prompts:   s.provider.Prompts(),
	}, nil
}

// UpdatePrompts replaces a session's weighted prompts without
// interrupting the audio.
func (m *Manager) UpdatePrompts(id string, prompts []lyria.WeightedPrompt) error {
	s := m.get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	if err := s.provider.UpdatePrompts(prompts); err != nil {
		return err
	}
	slog.Info("session prompts updated",
		slog.String("session_id", id),
		slog.Int("prompt_count", len(prompts)))
	return nil
}

// Join attaches a subscriber to a session's audio feed and returns the
// snapshot the client needs to set up playback.
func (m *Manager) Join(id string, sub Subscriber) (*JoinStatus, error) {
	s := m.get(id)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	s.addSubscriber(sub)
	slog.Info("subscriber joined",
		slog.String("session_id", id),
		slog.String("subscriber_id", sub.ID()),
		slog.Int("connected_clients", s.subscriberCount()))
	return &JoinStatus{
		SessionID:  id,
		IsPlaying:  s.provider.IsPlaying(),
		SampleRate: lyria.SampleRate,
		Channels:   lyria.Channels,
		Format:     lyria.AudioFormat,
	}, nil
}

// Leave detaches a subscriber. Unknown sessions and subscribers are
// ignored; disconnects race with teardown and both orders are fine.
func (m *Manager) Leave(id string, sub Subscriber) {
	s := m.get(id)
	if s == nil {
		return
	}
	s.removeSubscriber(sub.ID())
	slog.Info("subscriber left",
		slog.String("session_id", id),
		slog.String("subscriber_id", sub.ID()),
		slog.Int("connected_clients", s.subscriberCount()))
}

// Metrics returns a side-effect-free snapshot of every session's
// counters plus process-wide totals.
func (m *Manager) Metrics() Snapshot {
	now := time.Now().UTC()

	m.mu.Lock()
	sessions := make(map[string]*session, len(m.sessions))
	for id, s := range m.sessions {
		sessions[id] = s
	}
	m.mu.Unlock()

	snap := Snapshot{
		Timestamp:      now,
		UptimeSeconds:  round1(now.Sub(m.startTime).Seconds()),
		ActiveSessions: len(sessions),
		Sessions:       make(map[string]SessionMetricsSnapshot, len(sessions)),
	}
	for id, s := range sessions {
		ms := s.metrics.snapshot(now, s.queue.Len(), s.subscriberCount())
		snap.TotalBytesSent += ms.BytesSent
		snap.TotalChunksSent += ms.ChunksSent
		snap.TotalChunksDropped += ms.ChunksDropped
		snap.Sessions[id] = ms
	}
	snap.TotalKBSent = round1(float64(snap.TotalBytesSent) / 1024)
	return snap
}

// Shutdown destroys every active session. Teardown always completes;
// provider errors along the way are logged, not returned.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	slog.Info("shutting down all sessions", slog.Int("active_sessions", len(sessions)))
	for _, s := range sessions {
		m.destroy(s)
	}
}
