package lyria

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Playback commands understood by the service.
const (
	playbackPlay  = "PLAY"
	playbackPause = "PAUSE"
	playbackStop  = "STOP"
)

const connWriteWait = 10 * time.Second

// ClientMessage is the outbound message envelope of the bidirectional
// generation protocol. Exactly one field is set per message.
type ClientMessage struct {
	Setup                 *Setup            `json:"setup,omitempty"`
	ClientContent         *ClientContent    `json:"clientContent,omitempty"`
	MusicGenerationConfig *GenerationConfig `json:"musicGenerationConfig,omitempty"`
	PlaybackControl       string            `json:"playbackControl,omitempty"`
}

// Setup selects the generation model; sent once after dialing.
type Setup struct {
	Model string `json:"model"`
}

// ClientContent carries the active weighted prompts.
type ClientContent struct {
	WeightedPrompts []WeightedPrompt `json:"weightedPrompts"`
}

// GenerationConfig is the wire form of Config.
type GenerationConfig struct {
	BPM         int     `json:"bpm,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Brightness  float64 `json:"brightness,omitempty"`
	Density     float64 `json:"density,omitempty"`
	Guidance    float64 `json:"guidance,omitempty"`
}

// ServerMessage is the inbound message envelope.
type ServerMessage struct {
	SetupComplete  *struct{}       `json:"setupComplete,omitempty"`
	ServerContent  *ServerContent  `json:"serverContent,omitempty"`
	FilteredPrompt *FilteredPrompt `json:"filteredPrompt,omitempty"`
}

// ServerContent carries generated audio.
type ServerContent struct {
	AudioChunks []AudioChunk `json:"audioChunks,omitempty"`
}

// AudioChunk is one block of PCM audio. Data is base64 on the wire,
// which encoding/json maps to []byte directly.
type AudioChunk struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType,omitempty"`
}

// FilteredPrompt reports a prompt the service refused to play.
type FilteredPrompt struct {
	Text           string `json:"text,omitempty"`
	FilteredReason string `json:"filteredReason,omitempty"`
}

// Conn is one bidirectional connection to the music service.
type Conn interface {
	// Send writes one control message to the service.
	Send(msg ClientMessage) error
	// Messages returns the inbound server message stream. The channel
	// is closed when the connection ends.
	Messages() <-chan ServerMessage
	// Close tears the connection down and ends the message stream.
	Close() error
}

// Dialer opens provider connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebSocketDialer connects to the real service over WebSocket and
// performs the model setup handshake.
type WebSocketDialer struct {
	Endpoint string
	Model    string
	APIKey   string
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	endpoint := d.Endpoint + "?key=" + url.QueryEscape(d.APIKey)

	wsc, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial provider: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial provider: %w", err)
	}

	c := &wsConn{
		conn:     wsc,
		messages: make(chan ServerMessage, 16),
		done:     make(chan struct{}),
	}
	go c.readPump()

	if err := c.Send(ClientMessage{Setup: &Setup{Model: d.Model}}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	return c, nil
}

// wsConn wraps a gorilla connection with a read pump so receives are
// channel-based and cancellable.
type wsConn struct {
	conn      *websocket.Conn
	messages  chan ServerMessage
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) Send(msg ClientMessage) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(connWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Messages() <-chan ServerMessage {
	return c.messages
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(connWriteWait)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// readPump decodes inbound frames onto the messages channel until the
// connection ends. It is the sole closer of that channel.
func (c *wsConn) readPump() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("provider connection ended", slog.Any("error", err))
			}
			return
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("undecodable provider message", slog.Any("error", err))
			continue
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}
