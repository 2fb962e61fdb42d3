package ws

import (
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/readtone/backend/internal/relay"
)

const (
	// Time allowed to write one frame to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the peer counts as gone.
	pongWait = 60 * time.Second
	// Ping period; must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Inbound control messages are tiny; anything bigger is abuse.
	maxMessageSize = 1024
	// Outbound frame buffer per client. Audio frames are shed when the
	// buffer is full so one slow reader cannot stall the broadcast.
	sendBufferSize = 256
)

// Client verbs.
const (
	verbJoin   = "join"
	verbLeave  = "leave"
	verbPause  = "pause"
	verbResume = "resume"
)

// clientMessage is one inbound control frame from a client.
type clientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// Client is one WebSocket connection. It subscribes to at most one
// session at a time and relays that session's frames to the peer.
type Client struct {
	id      string
	conn    *websocket.Conn
	manager *relay.Manager
	send    chan relay.Frame
	done    chan struct{}

	mu        sync.Mutex
	sessionID string

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, manager *relay.Manager) *Client {
	return &Client{
		id:      uuid.New().String(),
		conn:    conn,
		manager: manager,
		send:    make(chan relay.Frame, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// ID implements relay.Subscriber.
func (c *Client) ID() string { return c.id }

// Deliver implements relay.Subscriber: a non-blocking handoff to the
// write pump. Frames for a client with a full buffer are shed; a closed
// client returns an error so the session detaches it.
func (c *Client) Deliver(frame relay.Frame) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	select {
	case c.send <- frame:
	default:
		// Slow reader: shed this frame rather than block the broadcast.
	}
	return nil
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// close tears the connection down once and leaves any joined session.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if id := c.session(); id != "" {
			c.manager.Leave(id, c)
		}
		_ = c.conn.Close()
		slog.Info("websocket client disconnected", slog.String("client_id", c.id))
	})
}

// readPump dispatches inbound control verbs until the connection ends.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended",
					slog.String("client_id", c.id),
					slog.Any("error", err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.Deliver(relay.ErrorFrame("invalid message"))
			continue
		}
		c.handle(msg)
	}
}

// handle maps one client verb onto the session manager.
func (c *Client) handle(msg clientMessage) {
	switch msg.Type {
	case verbJoin:
		status, err := c.manager.Join(msg.SessionID, c)
		if err != nil {
			slog.Warn("websocket join failed",
				slog.String("client_id", c.id),
				slog.String("session_id", msg.SessionID))
			_ = c.Deliver(relay.ErrorFrame("session not found"))
			return
		}
		// A client listens to one session at a time.
		if prev := c.session(); prev != "" && prev != msg.SessionID {
			c.manager.Leave(prev, c)
		}
		c.setSession(msg.SessionID)
		_ = c.Deliver(relay.JoinedFrame(*status))

	case verbLeave:
		c.manager.Leave(msg.SessionID, c)
		if c.session() == msg.SessionID {
			c.setSession("")
		}

	case verbPause:
		if err := c.manager.Pause(msg.SessionID); err != nil {
			_ = c.Deliver(relay.ErrorFrame("session not found"))
		}

	case verbResume:
		if err := c.manager.Resume(msg.SessionID); err != nil {
			_ = c.Deliver(relay.ErrorFrame("session not found"))
		}

	default:
		_ = c.Deliver(relay.ErrorFrame("unknown message type"))
	}
}

// writePump writes queued frames and keepalive pings until the client
// goes away.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
