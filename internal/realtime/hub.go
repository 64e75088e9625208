// Package realtime fans mutation events out to WebSocket clients grouped in
// rooms. Delivery is at most once: a client whose buffer is full misses the
// frame.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
)

const (
	RoomOrders     = "orders"
	RoomProducts   = "products"
	RoomCategories = "categories"
	RoomMessages   = "messages"
	RoomUsers      = "users"
)

const (
	EventStatusUpdate    = "status-update"
	EventNewMessage      = "new-message"
	EventInventoryUpdate = "inventory-update"
	EventJoined          = "joined"
	EventError           = "error"
)

var ErrRoomDenied = errors.New("not allowed to join room")

// Room names the room of a single entity, e.g. Room("order", id) is "order-<id>".
func Room(entity, id string) string {
	return entity + "-" + id
}

// Frame is the wire shape in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Principal is the caller behind a connection. Nil means anonymous.
type Principal struct {
	UserID string
	Role   string
}

// Authorizer decides whether p may join room.
type Authorizer func(ctx context.Context, p *Principal, room string) error

type Hub struct {
	log       *slog.Logger
	authorize Authorizer
	sendBuf   int

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool
}

type Option func(*Hub)

// WithSendBuffer sets the per-client queue length. Values below 1 are ignored.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

func NewHub(log *slog.Logger, authorize Authorizer, opts ...Option) *Hub {
	h := &Hub{
		log:       log,
		authorize: authorize,
		sendBuf:   64,
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.authorize == nil {
		h.authorize = func(context.Context, *Principal, string) error { return nil }
	}
	return h
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
}

func (h *Hub) join(ctx context.Context, c *Client, room string) error {
	if err := h.authorize(ctx, c.principal, room); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return nil
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Emit sends event to every client in any of rooms, once per client.
func (h *Hub) Emit(event string, data any, rooms ...string) {
	msg, err := encode(event, data)
	if err != nil {
		h.log.Error("ws_encode_error", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]struct{})
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			h.deliver(c, msg, event)
		}
	}
}

// Broadcast sends event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		h.log.Error("ws_encode_error", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, msg, event)
	}
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *Client, msg []byte, event string) {
	select {
	case c.send <- msg:
	default:
		h.log.Debug("ws_drop", "event", event, "reason", "send buffer full")
	}
}

// RoomSize reports how many clients are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, p *Principal, checkOrigin func(*http.Request) bool) error {
	up := upgrader
	up.CheckOrigin = checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, p)
	if !h.register(c) {
		_ = conn.Close()
		return nil
	}
	ctx := context.WithoutCancel(r.Context())
	go c.writePump()
	go c.readPump(ctx)
	return nil
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
