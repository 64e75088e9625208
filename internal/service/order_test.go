package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/transport"
)

func checkoutRequest(lines ...transport.OrderItemRequest) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           lines,
		ShippingAddress: address(),
		PaymentMethod:   "credit_card",
	}
}

func TestPlaceOrder_TotalsAndStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addProduct(t, "Mug", "10", 5)
	p2 := f.addProduct(t, "Spoon", "5", 3)

	res, err := f.orders.PlaceOrder(ctx, f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p1.ID, Quantity: 2},
		transport.OrderItemRequest{ProductID: p2.ID, Quantity: 1},
	))
	require.NoError(t, err)

	o := res.Order
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(25)), o.Subtotal.String())
	assert.True(t, o.Tax.Equal(decimal.RequireFromString("2.5")), o.Tax.String())
	assert.True(t, o.ShippingCost.Equal(decimal.NewFromInt(3)))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("30.5")), o.Total.String())
	assert.Equal(t, "BC-250307-0001", o.OrderNumber)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, models.OrderPending, o.StatusHistory[0].Status)

	assert.Equal(t, 3, f.stock(t, p1))
	assert.Equal(t, 2, f.stock(t, p2))
	assert.Len(t, res.Inventory, 2)

	stored, err := f.orders.GetOrder(ctx, f.customer, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(stored.Subtotal.Add(stored.Tax).Add(stored.ShippingCost)))
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Mug", stored.Items[0].ProductName)
}

func TestPlaceOrder_InsufficientStockBeforePayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Lamp", "40", 1)

	_, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, f.gateway.createCount(), "no intent may be created")
	assert.Equal(t, 1, f.stock(t, p))

	_, orders, err := f.repo.ListOrders(context.Background(), repoFilterAll(), pageAll())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_MergesRepeatedLines(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Cup", "2", 3)

	_, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 2},
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, p))
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Cup", "2", 3)
	_, err := f.products.Delete(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.gateway.createCount())
}

func TestPlaceOrder_PaymentFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Cup", "2", 3)
	f.gateway.failCreate = true

	_, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, 3, f.stock(t, p))
}

func TestPlaceOrder_StockRaceCancelsIntent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Cup", "2", 1)
	f.gateway.afterCreate = func() {
		// Another buyer takes the last unit between pre-check and commit.
		f.repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("stock", 0)
	}

	_, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Len(t, f.gateway.cancels, 1)
	assert.Equal(t, 0, f.stock(t, p))

	_, orders, err := f.repo.ListOrders(context.Background(), repoFilterAll(), pageAll())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_RetryAfterStockRaceGetsFreshIntent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Cup", "2", 1)
	f.gateway.afterCreate = func() {
		f.repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("stock", 0)
	}

	req := checkoutRequest(transport.OrderItemRequest{ProductID: p.ID, Quantity: 1})
	req.ClientOrderID = "cart-7"

	_, err := f.orders.PlaceOrder(ctx, f.customer, req)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Len(t, f.gateway.cancels, 1)
	cancelled := f.gateway.cancels[0]

	f.gateway.mu.Lock()
	f.gateway.afterCreate = nil
	f.gateway.mu.Unlock()
	require.NoError(t, f.repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("stock", 1).Error)

	res, err := f.orders.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.NotEqual(t, cancelled, res.Order.PaymentIntentID)

	intent, err := f.gateway.GetIntent(ctx, res.Order.PaymentIntentID)
	require.NoError(t, err)
	assert.NotEqual(t, "canceled", intent.Status)
	assert.Equal(t, 0, f.stock(t, p))

	again, err := f.orders.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, res.Order.ID, again.Order.ID)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Cup", "2", 5)

	req := checkoutRequest(transport.OrderItemRequest{ProductID: p.ID, Quantity: 2})
	req.ClientOrderID = "cart-42"

	first, err := f.orders.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)
	second, err := f.orders.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
	assert.Equal(t, 3, f.stock(t, p), "replay must not reserve stock twice")

	other := f.addUser(t, "other@example.com", models.RoleCustomer)
	third, err := f.orders.PlaceOrder(ctx, other, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.Order.ID, third.Order.ID, "keys are scoped per user")
}

func TestPlaceOrder_SequentialNumbers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.addProduct(t, "Cup", "2", 10)
	pattern := regexp.MustCompile(`^BC-\d{6}-\d{4}$`)

	var numbers []string
	for range 3 {
		res, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
			transport.OrderItemRequest{ProductID: p.ID, Quantity: 1},
		))
		require.NoError(t, err)
		assert.Regexp(t, pattern, res.Order.OrderNumber)
		numbers = append(numbers, res.Order.OrderNumber)
	}
	assert.Equal(t, []string{"BC-250307-0001", "BC-250307-0002", "BC-250307-0003"}, numbers)
}

func TestShippingPolicy(t *testing.T) {
	t.Parallel()
	p := ShippingPolicy{FlatRate: decimal.NewFromInt(5), FreeOver: decimal.NewFromInt(50)}
	assert.True(t, p.Cost(decimal.NewFromInt(49)).Equal(decimal.NewFromInt(5)))
	assert.True(t, p.Cost(decimal.NewFromInt(50)).IsZero())
	assert.True(t, ShippingPolicy{FlatRate: decimal.NewFromInt(5)}.Cost(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(5)))
}

func placeOne(t *testing.T, f *fixture, qty int) (*models.Order, *models.Product) {
	t.Helper()
	p := f.addProduct(t, "Kettle", "10", 5)
	res, err := f.orders.PlaceOrder(context.Background(), f.customer, checkoutRequest(
		transport.OrderItemRequest{ProductID: p.ID, Quantity: qty},
	))
	require.NoError(t, err)
	return res.Order, p
}

func TestUpdateStatus_Transitions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, _ := placeOne(t, f, 1)

	_, err := f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: "delivered"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, ErrConflict)

	steps := []string{"processing", "shipped", "shipped", "delivered"}
	for _, s := range steps {
		tracking := "TRK-1"
		_, err := f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: s, Note: "step " + s, TrackingNumber: &tracking})
		require.NoError(t, err, s)
	}

	got, err := f.orders.GetOrder(ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.OrderStatus)
	assert.Equal(t, "TRK-1", got.TrackingNumber)
	assert.Len(t, got.StatusHistory, 1+len(steps))

	_, err = f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: "cancelled"})
	require.ErrorIs(t, err, ErrInvalidTransition)

	notes, err := f.repo.Notifications(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, notes, len(steps))
}

func TestProcessRefund_FullRestocks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, p := placeOne(t, f, 2)
	require.Equal(t, 3, f.stock(t, p))

	res, err := f.orders.ProcessRefund(ctx, o.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, res.Order.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, res.Order.OrderStatus)
	assert.Equal(t, 5, f.stock(t, p))
	require.Len(t, res.Inventory, 1)
	assert.Equal(t, 5, res.Inventory[0].Stock)

	_, err = f.orders.ProcessRefund(ctx, o.ID, nil, "")
	require.ErrorIs(t, err, ErrAlreadyRefunded)
	require.ErrorIs(t, err, ErrConflict)
	assert.Len(t, f.gateway.refunds, 1, "second refund must not reach the gateway")
	assert.Equal(t, 5, f.stock(t, p))
}

func TestProcessRefund_PartialKeepsStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, p := placeOne(t, f, 2)

	amt := decimal.NewFromInt(5)
	res, err := f.orders.ProcessRefund(ctx, o.ID, &amt, "damaged box")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, res.Order.PaymentStatus)
	assert.Equal(t, 3, f.stock(t, p))
	last := res.Order.StatusHistory[len(res.Order.StatusHistory)-1]
	assert.Contains(t, last.Note, "damaged box")
}

func TestProcessRefund_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, _ := placeOne(t, f, 1)

	for _, s := range []string{"0", "-1", "1000"} {
		amt := decimal.RequireFromString(s)
		_, err := f.orders.ProcessRefund(ctx, o.ID, &amt, "")
		require.ErrorIs(t, err, ErrValidation, s)
	}

	f.gateway.failRefund = true
	_, err := f.orders.ProcessRefund(ctx, o.ID, nil, "")
	require.ErrorIs(t, err, ErrPaymentFailed)

	got, err := f.orders.GetOrder(ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestHandlePaymentEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, _ := placeOne(t, f, 1)
	stored, err := f.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	updated, err := f.orders.HandlePaymentEvent(ctx, &payment.WebhookEvent{Type: payment.EventIntentSucceeded, PaymentIntentID: stored.PaymentIntentID})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)

	again, err := f.orders.HandlePaymentEvent(ctx, &payment.WebhookEvent{Type: payment.EventIntentSucceeded, PaymentIntentID: stored.PaymentIntentID})
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = f.orders.ProcessRefund(ctx, o.ID, nil, "")
	require.NoError(t, err)
	after, err := f.orders.HandlePaymentEvent(ctx, &payment.WebhookEvent{Type: payment.EventIntentFailed, PaymentIntentID: stored.PaymentIntentID})
	require.NoError(t, err)
	assert.Nil(t, after)
	final, err := f.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, final.PaymentStatus)

	ignored, err := f.orders.HandlePaymentEvent(ctx, &payment.WebhookEvent{Type: "charge.captured"})
	require.NoError(t, err)
	assert.Nil(t, ignored)
}

func TestOrderAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	o, _ := placeOne(t, f, 1)
	stranger := f.addUser(t, "stranger@example.com", models.RoleCustomer)

	_, err := f.orders.GetOrder(ctx, stranger, o.ID)
	require.ErrorIs(t, err, ErrForbidden)

	orders, pg, err := f.orders.ListOrders(ctx, stranger, transport.OrderQuery{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.EqualValues(t, 0, pg.Total)

	orders, pg, err = f.orders.ListOrders(ctx, f.admin, transport.OrderQuery{Search: "bc-2503"})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.EqualValues(t, 1, pg.Total)

	mine, _, err := f.orders.MyOrders(ctx, f.admin, transport.OrderQuery{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestOrderStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	placeOne(t, f, 1)
	placeOne(t, f, 2)

	stats, err := f.orders.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Totals.Count)
	// (10 + 1 + 3) + (20 + 2 + 3)
	assert.True(t, stats.Totals.Revenue.Equal(decimal.NewFromInt(39)), stats.Totals.Revenue.String())
	require.Len(t, stats.ByStatus, 1)
	assert.Equal(t, models.OrderPending, stats.ByStatus[0].Status)
	require.Len(t, stats.ByDate, 1)
	assert.Equal(t, "2025-03-07", stats.ByDate[0].Date)
}
