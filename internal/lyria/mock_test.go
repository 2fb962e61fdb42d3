package lyria

import (
	"context"
	"testing"
	"time"
)

func TestMockDialer_EmitsChunksWhilePlaying(t *testing.T) {
	d := &MockDialer{ChunkSize: 64, Interval: 5 * time.Millisecond}
	conn, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Nothing flows before play.
	select {
	case msg := <-conn.Messages():
		t.Fatalf("unexpected message before play: %+v", msg)
	case <-time.After(30 * time.Millisecond):
	}

	if err := conn.Send(ClientMessage{PlaybackControl: playbackPlay}); err != nil {
		t.Fatalf("Send play: %v", err)
	}

	select {
	case msg := <-conn.Messages():
		if msg.ServerContent == nil || len(msg.ServerContent.AudioChunks) != 1 {
			t.Fatalf("expected an audio chunk, got %+v", msg)
		}
		if got := len(msg.ServerContent.AudioChunks[0].Data); got != 64 {
			t.Errorf("expected 64-byte chunk, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audio after play")
	}
}

func TestMockConn_CloseEndsStream(t *testing.T) {
	d := &MockDialer{ChunkSize: 16, Interval: 5 * time.Millisecond}
	conn, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case _, ok := <-conn.Messages():
		if ok {
			// Drain anything buffered before the close landed.
			for range conn.Messages() {
			}
		}
	case <-time.After(time.Second):
		t.Fatal("message stream never ended after close")
	}

	if err := conn.Send(ClientMessage{PlaybackControl: playbackPlay}); err == nil {
		t.Error("expected send on closed connection to fail")
	}
}
