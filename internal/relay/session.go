package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/readtone/backend/internal/lyria"
)

// session bundles everything one live music session owns: the provider
// connection, the queue between its receive loop and the broadcast
// loop, the subscriber set, and the counters. All of it is created
// together in startWithID and torn down together in destroy.
type session struct {
	id       string
	provider *lyria.Session
	queue    *Queue
	metrics  *sessionMetrics

	mu          sync.Mutex
	subscribers map[string]Subscriber

	cancelBroadcast context.CancelFunc
	broadcastDone   chan struct{}
}

// onChunk is the provider receive-loop callback. The enqueue never
// blocks, so a slow broadcast side cannot stall chunk reception; on
// overflow the incoming chunk is dropped and counted.
func (s *session) onChunk(chunk []byte) {
	if s.queue.TryEnqueue(chunk) {
		s.metrics.addReceived(len(chunk))
		return
	}

	dropped := s.metrics.addDropped()
	slog.Warn("audio chunk dropped",
		slog.String("session_id", s.id),
		slog.String("reason", "queue_full"),
		slog.Int64("chunks_dropped", dropped))
}

func (s *session) addSubscriber(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.ID()] = sub
}

func (s *session) removeSubscriber(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

func (s *session) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// snapshotSubscribers copies the current set so delivery iterates
// without holding the lock.
func (s *session) snapshotSubscribers() []Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// detachAll empties the subscriber set and returns the former members.
func (s *session) detachAll() []Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subscribers = make(map[string]Subscriber)
	return subs
}

// broadcast delivers one frame to every subscriber, detaching any whose
// delivery fails so one dead connection cannot affect the rest.
func (s *session) broadcast(frame Frame) {
	for _, sub := range s.snapshotSubscribers() {
		if err := sub.Deliver(frame); err != nil {
			slog.Warn("subscriber delivery failed, detaching",
				slog.String("session_id", s.id),
				slog.String("subscriber_id", sub.ID()),
				slog.Any("error", err))
			s.removeSubscriber(sub.ID())
		}
	}
}
