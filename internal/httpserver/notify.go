package httpserver

import (
	"context"
	"time"

	"github.com/Skotchmaster/shop_backend/internal/events"
	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// collections maps an entity to the room that sees every change to it.
var collections = map[string]string{
	"order":    realtime.RoomOrders,
	"product":  realtime.RoomProducts,
	"category": realtime.RoomCategories,
	"message":  realtime.RoomMessages,
	"user":     realtime.RoomUsers,
}

// Notifier emits mutation events to WebSocket rooms and Kafka. Both sinks
// are optional; emission never blocks the caller.
type Notifier struct {
	Hub    *realtime.Hub
	Events events.Publisher
	Now    func() time.Time
}

type mutationPayload struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type statusPayload struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now().UTC()
	}
	return time.Now().UTC()
}

// Mutation announces kind on entity id to the entity room, the collection
// room and any extra rooms, then publishes it to <entity>_events.
func (n *Notifier) Mutation(ctx context.Context, entity, kind, id string, data any, extra ...string) {
	if n == nil {
		return
	}
	if n.Hub != nil {
		rooms := append([]string{realtime.Room(entity, id)}, extra...)
		if coll, ok := collections[entity]; ok {
			rooms = append(rooms, coll)
		}
		n.Hub.Emit(entity+":"+kind, mutationPayload{Type: kind, Data: data}, rooms...)
	}
	if n.Events != nil {
		env := events.Envelope{Entity: entity, Kind: kind, ID: id, Data: data, OccurredAt: n.now()}
		if err := n.Events.Publish(ctx, env); err != nil {
			logging.FromContext(ctx).Warn("publish_event_error", "entity", entity, "kind", kind, "id", id, "error", err)
		}
	}
}

func (n *Notifier) Status(entity, id, status string, extra ...string) {
	if n == nil || n.Hub == nil {
		return
	}
	rooms := append([]string{realtime.Room(entity, id)}, extra...)
	n.Hub.Emit(realtime.EventStatusUpdate, statusPayload{ID: id, Status: status, Timestamp: n.now()}, rooms...)
}

func (n *Notifier) NewMessage(m *models.Message) {
	if n == nil || n.Hub == nil {
		return
	}
	n.Hub.Emit(realtime.EventNewMessage, m, realtime.Room("user", m.RecipientID.String()))
}

// Inventory broadcasts each level to every connection.
func (n *Notifier) Inventory(levels []repo.InventoryLevel) {
	if n == nil || n.Hub == nil {
		return
	}
	for _, lv := range levels {
		n.Hub.Broadcast(realtime.EventInventoryUpdate, lv)
	}
}

func (n *Notifier) Order(ctx context.Context, kind string, o *models.Order) {
	n.Mutation(ctx, "order", kind, o.ID.String(), o, realtime.Room("user", o.UserID.String()))
}
