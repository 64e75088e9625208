package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type MessageHTTP struct {
	Svc    *service.MessageService
	Notify *Notifier
}

func participantRooms(m *models.Message) []string {
	return []string{
		realtime.Room("user", m.SenderID.String()),
		realtime.Room("user", m.RecipientID.String()),
	}
}

func (h *MessageHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.list")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var q transport.MessageQuery
	if err := bind(c, l, "list_messages_error", &q); err != nil {
		return err
	}
	items, pg, err := h.Svc.List(ctx, a, q)
	if err != nil {
		return fail(l, "list_messages_error", err)
	}
	return respondList(c, items, &pg)
}

func (h *MessageHTTP) ListAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.list_all")

	var q transport.MessageQuery
	if err := bind(c, l, "list_all_messages_error", &q); err != nil {
		return err
	}
	items, pg, err := h.Svc.ListAll(ctx, q)
	if err != nil {
		return fail(l, "list_all_messages_error", err)
	}
	return respondList(c, items, &pg)
}

func (h *MessageHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.get")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "get_message_error", "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Get(ctx, a, id)
	if err != nil {
		return fail(l, "get_message_error", err)
	}
	return respond(c, http.StatusOK, m)
}

func (h *MessageHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.create")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.CreateMessageRequest
	if err := bind(c, l, "create_message_error", &req); err != nil {
		return err
	}
	m, err := h.Svc.Create(ctx, a, req)
	if err != nil {
		return fail(l, "create_message_error", err)
	}

	l.Info("create_message_success", "message_id", m.ID)
	h.Notify.Mutation(ctx, "message", KindCreated, m.ID.String(), m, participantRooms(m)...)
	h.Notify.NewMessage(m)
	return respond(c, http.StatusCreated, m)
}

func (h *MessageHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.update")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "update_message_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateMessageRequest
	if err := bind(c, l, "update_message_error", &req); err != nil {
		return err
	}
	m, err := h.Svc.Update(ctx, a, id, req)
	if err != nil {
		return fail(l, "update_message_error", err)
	}

	h.Notify.Mutation(ctx, "message", KindUpdated, m.ID.String(), m, participantRooms(m)...)
	return respond(c, http.StatusOK, m)
}

func (h *MessageHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.delete")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_message_error", "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Delete(ctx, a, id)
	if err != nil {
		return fail(l, "delete_message_error", err)
	}

	l.Info("delete_message_success", "message_id", id)
	h.Notify.Mutation(ctx, "message", KindDeleted, id.String(), m, participantRooms(m)...)
	return respond(c, http.StatusOK, map[string]any{})
}

func (h *MessageHTTP) Archive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.archive")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "archive_message_error", "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Archive(ctx, a, id)
	if err != nil {
		return fail(l, "archive_message_error", err)
	}

	h.Notify.Mutation(ctx, "message", KindUpdated, m.ID.String(), m, participantRooms(m)...)
	h.Notify.Status("message", m.ID.String(), string(m.Status), participantRooms(m)...)
	return respond(c, http.StatusOK, m)
}
