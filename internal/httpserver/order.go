package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/realtime"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
	// Products reindexes stock changes; optional.
	Products *service.ProductService
	Notify   *Notifier
}

func (h *OrderHTTP) stockChanged(c echo.Context, levels []repo.InventoryLevel) {
	if len(levels) == 0 {
		return
	}
	h.Notify.Inventory(levels)
	if h.Products != nil {
		h.Products.Reindex(c.Request().Context(), levels)
	}
}

func (h *OrderHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.CreateOrderRequest
	if err := bind(c, l, "create_order_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.PlaceOrder(ctx, a, req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	} else {
		l.Info("create_order_success", "order_id", res.Order.ID, "order_number", res.Order.OrderNumber)
		h.Notify.Order(ctx, KindCreated, res.Order)
		h.stockChanged(c, res.Inventory)
	}
	return c.JSON(status, map[string]any{
		"success":      true,
		"data":         res.Order,
		"clientSecret": res.ClientSecret,
		"inventory":    res.Inventory,
	})
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var q transport.OrderQuery
	if err := bind(c, l, "list_orders_error", &q); err != nil {
		return err
	}
	orders, pg, err := h.Svc.ListOrders(ctx, a, q)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return respondList(c, orders, &pg)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var q transport.OrderQuery
	if err := bind(c, l, "my_orders_error", &q); err != nil {
		return err
	}
	orders, pg, err := h.Svc.MyOrders(ctx, a, q)
	if err != nil {
		return fail(l, "my_orders_error", err)
	}
	return respondList(c, orders, &pg)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "get_order_error", "id")
	if err != nil {
		return err
	}
	o, err := h.Svc.GetOrder(ctx, a, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return respond(c, http.StatusOK, o)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, l, "update_order_status_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateOrderStatusRequest
	if err := bind(c, l, "update_order_status_error", &req); err != nil {
		return err
	}
	o, err := h.Svc.UpdateStatus(ctx, id, req)
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}

	l.Info("update_order_status_success", "order_id", o.ID, "order_status", o.OrderStatus)
	h.Notify.Order(ctx, KindUpdated, o)
	h.Notify.Status("order", o.ID.String(), string(o.OrderStatus), realtime.Room("user", o.UserID.String()), realtime.RoomOrders)
	return respond(c, http.StatusOK, o)
}

func (h *OrderHTTP) Refund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.refund")

	id, err := pathID(c, l, "refund_order_error", "id")
	if err != nil {
		return err
	}
	var req transport.RefundRequest
	if err := bind(c, l, "refund_order_error", &req); err != nil {
		return err
	}
	res, err := h.Svc.ProcessRefund(ctx, id, req.Amount, req.Reason)
	if err != nil {
		return fail(l, "refund_order_error", err)
	}

	o := res.Order
	l.Info("refund_order_success", "order_id", o.ID, "refund_id", res.Refund.ID)
	h.Notify.Order(ctx, KindUpdated, o)
	h.Notify.Status("order", o.ID.String(), string(o.OrderStatus), realtime.Room("user", o.UserID.String()), realtime.RoomOrders)
	h.stockChanged(c, res.Inventory)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    o,
		"refund":  res.Refund,
	})
}

func (h *OrderHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	id, err := pathID(c, l, "delete_order_error", "id")
	if err != nil {
		return err
	}
	o, err := h.Svc.DeleteOrder(ctx, id)
	if err != nil {
		return fail(l, "delete_order_error", err)
	}

	l.Info("delete_order_success", "order_id", id)
	h.Notify.Order(ctx, KindDeleted, o)
	return respond(c, http.StatusOK, map[string]any{})
}

func (h *OrderHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.stats")

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		return fail(l, "order_stats_error", err)
	}
	return respond(c, http.StatusOK, stats)
}
