package relay

import (
	"context"
	"time"
)

// Queue is a bounded FIFO buffer of audio chunks decoupling the provider
// receive loop from subscriber fan-out. It expects a single producer and
// a single consumer. A full queue rejects the incoming chunk rather than
// block the producer.
type Queue struct {
	ch chan []byte
}

// NewQueue creates a queue holding at most capacity chunks.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan []byte, capacity)}
}

// TryEnqueue appends a chunk without blocking. It reports false when the
// queue is full; the chunk is then the caller's to discard.
func (q *Queue) TryEnqueue(chunk []byte) bool {
	select {
	case q.ch <- chunk:
		return true
	default:
		return false
	}
}

// Dequeue waits up to wait for the next chunk. It returns false on
// timeout or when ctx is cancelled; callers tell the two apart by
// checking ctx.Err().
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) ([]byte, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case chunk := <-q.ch:
		return chunk, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Len returns the number of buffered chunks.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
