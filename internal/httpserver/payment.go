package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

const maxWebhookBody = 64 << 10

type PaymentHTTP struct {
	Gateway payment.Gateway
	Orders  *service.OrderService
	Notify  *Notifier
}

// Webhook verifies the processor signature over the raw body before any
// state changes.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_error", "status", http.StatusBadRequest, "reason", "unreadable body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	ev, err := h.Gateway.ParseWebhook(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			l.Warn("webhook_error", "status", http.StatusBadRequest, "reason", "bad signature", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "webhook signature verification failed")
		}
		return fail(l, "webhook_error", err)
	}

	o, err := h.Orders.HandlePaymentEvent(ctx, ev)
	if err != nil {
		return fail(l, "webhook_error", err)
	}
	if o != nil {
		h.Notify.Order(ctx, KindUpdated, o)
	}
	return c.JSON(http.StatusOK, map[string]any{"received": true})
}
