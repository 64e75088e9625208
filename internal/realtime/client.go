package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	principal *Principal
	// rooms is guarded by hub.mu.
	rooms map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, p *Principal) *Client {
	return &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, h.sendBuf),
		principal: p,
		rooms:     make(map[string]struct{}),
	}
}

var joinPrefixes = map[string]string{
	"join-order-room":   "order",
	"join-product-room": "product",
	"join-user-room":    "user",
	"join-message-room": "message",
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws_read_error", "error", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.reply(EventError, "malformed frame")
			continue
		}
		c.handle(ctx, f)
	}
}

func (c *Client) handle(ctx context.Context, f Frame) {
	var arg string
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &arg); err != nil {
			c.reply(EventError, "data must be a string")
			return
		}
	}
	arg = strings.TrimSpace(arg)

	var room string
	switch f.Event {
	case "join", "leave-room":
		room = arg
	default:
		prefix, ok := joinPrefixes[f.Event]
		if !ok {
			c.reply(EventError, "unknown event "+f.Event)
			return
		}
		if arg != "" {
			room = Room(prefix, arg)
		}
	}
	if room == "" {
		c.reply(EventError, "room is required")
		return
	}

	if f.Event == "leave-room" {
		c.hub.leave(c, room)
		c.reply("left", room)
		return
	}
	if err := c.hub.join(ctx, c, room); err != nil {
		msg := "cannot join " + room
		if errors.Is(err, ErrRoomDenied) {
			msg = err.Error() + " " + room
		}
		c.reply(EventError, msg)
		return
	}
	c.reply(EventJoined, room)
}

// reply queues a frame for this client only.
func (c *Client) reply(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	c.hub.deliver(c, msg, event)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
