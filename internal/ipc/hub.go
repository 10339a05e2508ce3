// Package ipc connects the shell to its frontends. Hub serves local
// frontends over websockets; Playground links the shell to an editor host
// over socket.io.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
)

// Message types exchanged with frontends.
const (
	TypeAck        = "ack"
	TypeResult     = "result"
	TypeError      = "error"
	TypePing       = "ping"
	TypeLoading    = "loading"
	TypeStage      = "stage"
	TypeReady      = "ready"
	TypeDiagnostic = "diagnostic"
	TypeNavigate   = "navigate"
	TypeReload     = "reload"
	TypeClick      = "click"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	maxMessage   = 1 << 20
)

// Message is the envelope of every frame.
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Handler answers a command from a frontend. The returned value is sent
// back as the result data.
type Handler func(ctx context.Context, msg Message) (any, error)

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub fans shell events out to every connected frontend and dispatches
// frontend commands to handlers.
type Hub struct {
	ctx      context.Context
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[*client]struct{}
	handlers map[string]Handler
	closed   bool
}

// NewHub creates a hub. ctx scopes handler calls and carries the logger.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		ctx: ctx,
		upgrader: websocket.Upgrader{
			// frontends are served from file:// or a dev server
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		handlers: make(map[string]Handler),
	}
}

// Handle registers fn for messages of msgType.
func (h *Hub) Handle(msgType string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = fn
}

// Clients returns the number of connected frontends.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every frontend. Frontends whose buffer is full
// miss the event.
func (h *Hub) Broadcast(msgType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", msgType, err)
	}
	msg := Message{Type: msgType, Data: raw, Timestamp: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			ctxlog.FromContext(h.ctx).Warn("Dropping event for slow frontend.", "client", c.id, "type", msgType)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and serves the frontend until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(h.ctx)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed.", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- Message{Type: TypeAck, Data: json.RawMessage(fmt.Sprintf("%q", c.id)), Timestamp: time.Now()}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("Frontend connected.", "client", c.id)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every frontend.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(Message{Type: TypePing, Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	logger := ctxlog.FromContext(h.ctx).With("client", c.id)
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessage)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Frontend connection lost.", "error", err)
			}
			return
		}
		reply := h.dispatch(msg)
		if reply == nil {
			continue
		}
		if !h.trySend(c, *reply) {
			return
		}
	}
}

// trySend queues a reply unless the client is gone or its buffer is full.
func (h *Hub) trySend(c *client, msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) dispatch(msg Message) *Message {
	h.mu.RLock()
	fn, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if msg.Type == TypePing {
		return nil
	}
	if !ok {
		return &Message{Type: TypeError, RequestID: msg.RequestID, Error: fmt.Sprintf("unknown message type %q", msg.Type), Timestamp: time.Now()}
	}

	result, err := fn(h.ctx, msg)
	if err != nil {
		return &Message{Type: TypeError, RequestID: msg.RequestID, Error: err.Error(), Timestamp: time.Now()}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return &Message{Type: TypeError, RequestID: msg.RequestID, Error: err.Error(), Timestamp: time.Now()}
	}
	return &Message{Type: TypeResult, RequestID: msg.RequestID, Data: raw, Timestamp: time.Now()}
}
