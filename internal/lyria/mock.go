package lyria

import (
	"context"
	"net"
	"sync"
	"time"
)

// MockDialer fabricates connections that synthesize PCM locally at a
// steady rate. Selected with PROVIDER_MODE=mock so the server runs end
// to end without provider credentials.
type MockDialer struct {
	// ChunkSize is the payload size per chunk in bytes.
	// Defaults to 50ms of 48kHz stereo pcm16.
	ChunkSize int
	// Interval is the delay between chunks. Defaults to 50ms.
	Interval time.Duration
}

func (d *MockDialer) Dial(ctx context.Context) (Conn, error) {
	chunkSize := d.ChunkSize
	if chunkSize <= 0 {
		chunkSize = SampleRate * Channels * 2 / 20
	}
	interval := d.Interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	c := &mockConn{
		messages:  make(chan ServerMessage, 4),
		done:      make(chan struct{}),
		chunkSize: chunkSize,
		interval:  interval,
	}
	go c.generate()
	return c, nil
}

// mockConn honors playback control messages and emits numbered chunks
// while playing.
type mockConn struct {
	messages  chan ServerMessage
	done      chan struct{}
	closeOnce sync.Once
	chunkSize int
	interval  time.Duration

	mu      sync.Mutex
	playing bool
	seq     byte
}

func (c *mockConn) Send(msg ClientMessage) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	switch msg.PlaybackControl {
	case playbackPlay:
		c.mu.Lock()
		c.playing = true
		c.mu.Unlock()
	case playbackPause, playbackStop:
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
	}
	return nil
}

func (c *mockConn) Messages() <-chan ServerMessage {
	return c.messages
}

func (c *mockConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// generate is the sole closer of the messages channel.
func (c *mockConn) generate() {
	defer close(c.messages)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			playing := c.playing
			seq := c.seq
			if playing {
				c.seq++
			}
			c.mu.Unlock()
			if !playing {
				continue
			}

			// Near-silence with a sequence marker in the first byte so
			// ordering is visible downstream.
			chunk := make([]byte, c.chunkSize)
			chunk[0] = seq

			select {
			case c.messages <- ServerMessage{ServerContent: &ServerContent{
				AudioChunks: []AudioChunk{{Data: chunk}},
			}}:
			case <-c.done:
				return
			}
		}
	}
}
