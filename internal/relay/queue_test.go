package relay

import (
	"context"
	"testing"
	"time"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(8)
	for i := byte(1); i <= 5; i++ {
		if !q.TryEnqueue([]byte{i}) {
			t.Fatalf("enqueue %d failed on a queue with room", i)
		}
	}

	for want := byte(1); want <= 5; want++ {
		chunk, ok := q.Dequeue(context.Background(), time.Second)
		if !ok {
			t.Fatalf("dequeue %d timed out", want)
		}
		if chunk[0] != want {
			t.Fatalf("expected chunk %d, got %d", want, chunk[0])
		}
	}
}

func TestQueueDropsIncomingOnOverflow(t *testing.T) {
	const capacity = 10
	const total = 25

	q := NewQueue(capacity)
	dropped := 0
	for i := 0; i < total; i++ {
		if !q.TryEnqueue([]byte{byte(i)}) {
			dropped++
		}
	}

	if want := total - capacity; dropped != want {
		t.Errorf("expected %d dropped chunks, got %d", want, dropped)
	}
	if q.Len() != capacity {
		t.Errorf("expected queue length %d, got %d", capacity, q.Len())
	}

	// The survivors are the oldest chunks: overflow discards the
	// arriving chunk, never buffered ones.
	for want := byte(0); want < capacity; want++ {
		chunk, ok := q.Dequeue(context.Background(), time.Second)
		if !ok {
			t.Fatalf("dequeue %d timed out", want)
		}
		if chunk[0] != want {
			t.Fatalf("expected chunk %d, got %d", want, chunk[0])
		}
	}
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := NewQueue(4)

	start := time.Now()
	chunk, ok := q.Dequeue(context.Background(), 20*time.Millisecond)
	if ok {
		t.Fatalf("expected timeout on an empty queue, got chunk %v", chunk)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("dequeue returned after %v, before the timeout", elapsed)
	}
}

func TestQueueDequeueCancelled(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Dequeue(ctx, time.Minute); ok {
		t.Fatal("expected cancelled dequeue to fail")
	}
}
