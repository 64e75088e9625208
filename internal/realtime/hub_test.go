package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminOnlyCollections(_ context.Context, p *Principal, room string) error {
	if room == RoomOrders && (p == nil || p.Role != "admin") {
		return ErrRoomDenied
	}
	return nil
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), adminOnlyCollections)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p *Principal
		if role := r.URL.Query().Get("role"); role != "" {
			p = &Principal{UserID: "u1", Role: role}
		}
		_ = hub.ServeWS(w, r, p, func(*http.Request) bool { return true })
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event, data string) {
	t.Helper()
	raw, _ := json.Marshal(data)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) (string, string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	var s string
	_ = json.Unmarshal(f.Data, &s)
	return f.Event, s
}

func TestHub_JoinAndEmit(t *testing.T) {
	t.Parallel()
	hub, url := newTestHub(t)
	conn := dial(t, url)

	send(t, conn, "join-order-room", "abc")
	ev, room := read(t, conn)
	require.Equal(t, EventJoined, ev)
	require.Equal(t, "order-abc", room)
	require.Equal(t, 1, hub.RoomSize("order-abc"))

	hub.Emit(EventStatusUpdate, map[string]string{"id": "abc", "status": "shipped"}, Room("order", "abc"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, EventStatusUpdate, f.Event)
	assert.JSONEq(t, `{"id":"abc","status":"shipped"}`, string(f.Data))
}

func TestHub_EmitDeliversOncePerClient(t *testing.T) {
	t.Parallel()
	hub, url := newTestHub(t)
	conn := dial(t, url)

	send(t, conn, "join-product-room", "p1")
	ev, _ := read(t, conn)
	require.Equal(t, EventJoined, ev)
	send(t, conn, "join", RoomProducts)
	ev, _ = read(t, conn)
	require.Equal(t, EventJoined, ev)

	hub.Emit("product:updated", "first", Room("product", "p1"), RoomProducts)
	hub.Emit("product:updated", "second", RoomProducts)

	_, got := read(t, conn)
	assert.Equal(t, "first", got)
	_, got = read(t, conn)
	assert.Equal(t, "second", got, "the first emit must not be delivered twice")
}

func TestHub_RoomAuthorization(t *testing.T) {
	t.Parallel()
	_, url := newTestHub(t)

	anon := dial(t, url)
	send(t, anon, "join", RoomOrders)
	ev, msg := read(t, anon)
	assert.Equal(t, EventError, ev)
	assert.Contains(t, msg, RoomOrders)

	admin := dial(t, url+"?role=admin")
	send(t, admin, "join", RoomOrders)
	ev, room := read(t, admin)
	assert.Equal(t, EventJoined, ev)
	assert.Equal(t, RoomOrders, room)
}

func TestHub_LeaveAndUnknownEvent(t *testing.T) {
	t.Parallel()
	hub, url := newTestHub(t)
	conn := dial(t, url)

	send(t, conn, "join", RoomCategories)
	ev, _ := read(t, conn)
	require.Equal(t, EventJoined, ev)

	send(t, conn, "leave-room", RoomCategories)
	ev, _ = read(t, conn)
	require.Equal(t, "left", ev)
	assert.Equal(t, 0, hub.RoomSize(RoomCategories))

	send(t, conn, "dance", "x")
	ev, _ = read(t, conn)
	assert.Equal(t, EventError, ev)
}

func TestHub_Broadcast(t *testing.T) {
	t.Parallel()
	hub, url := newTestHub(t)
	a := dial(t, url)
	b := dial(t, url)

	// Joining proves both clients are registered before broadcasting.
	send(t, a, "join", RoomProducts)
	ev, _ := read(t, a)
	require.Equal(t, EventJoined, ev)
	send(t, b, "join", RoomCategories)
	ev, _ = read(t, b)
	require.Equal(t, EventJoined, ev)

	hub.Broadcast(EventInventoryUpdate, "stock")
	ev, _ = read(t, a)
	assert.Equal(t, EventInventoryUpdate, ev)
	ev, _ = read(t, b)
	assert.Equal(t, EventInventoryUpdate, ev)
}
