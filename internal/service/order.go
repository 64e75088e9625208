package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/payment"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/internal/util"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

// ShippingPolicy charges FlatRate unless the subtotal reaches FreeOver.
// A zero FreeOver disables free shipping.
type ShippingPolicy struct {
	FlatRate decimal.Decimal
	FreeOver decimal.Decimal
}

func (p ShippingPolicy) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeOver.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeOver) {
		return decimal.Zero
	}
	return p.FlatRate
}

type OrderService struct {
	Repo         *repo.GormRepo
	Payments     payment.Gateway
	Mail         Mailer
	Shipping     ShippingPolicy
	Currency     string
	NumberPrefix string
	Now          func() time.Time
}

type CheckoutResult struct {
	Order        *models.Order
	ClientSecret string
	Inventory    []repo.InventoryLevel
	Replayed     bool
}

type RefundResult struct {
	Order     *models.Order
	Refund    *payment.Refund
	Inventory []repo.InventoryLevel
}

func (svc *OrderService) prefix() string {
	if svc.NumberPrefix == "" {
		return "BC"
	}
	return svc.NumberPrefix
}

func checkoutKey(userID uuid.UUID, clientOrderID string) string {
	return userID.String() + ":" + clientOrderID
}

func toAddress(a transport.AddressRequest) models.Address {
	return models.Address{
		FirstName:   strings.TrimSpace(a.FirstName),
		LastName:    strings.TrimSpace(a.LastName),
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.State),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		Country:     strings.TrimSpace(a.Country),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
	}
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(items []transport.OrderItemRequest) ([]uuid.UUID, map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(items))
	qty := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.ProductID == uuid.Nil {
			return nil, nil, fmt.Errorf("%w: product is required", ErrValidation)
		}
		if it.Quantity < 1 {
			return nil, nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		if _, seen := qty[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}
	return ids, qty, nil
}

// PlaceOrder checks stock, opens a payment intent, then reserves stock and
// stores the order atomically. If the store step fails the intent is
// cancelled.
func (svc *OrderService) PlaceOrder(ctx context.Context, actor Actor, req transport.CreateOrderRequest) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.place_order", "user_id", actor.ID)

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	method := models.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, req.PaymentMethod)
	}

	var key *string
	if cid := strings.TrimSpace(req.ClientOrderID); cid != "" {
		k := checkoutKey(actor.ID, cid)
		key = &k
		if res, err := svc.replay(ctx, k); err != nil || res != nil {
			return res, err
		}
	}

	ids, qty, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	products, err := svc.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		if p.Stock < qty[id] {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, p.Name, p.Stock)
		}
		items = append(items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty[id],
			Price:       p.Price,
		})
	}

	shipping := toAddress(req.ShippingAddress)
	billing := shipping
	if req.BillingAddress != nil {
		billing = toAddress(*req.BillingAddress)
	}

	now := nowFunc(svc.Now)
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          actor.ID,
		Items:           items,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentPending,
		OrderStatus:     models.OrderPending,
		CheckoutKey:     key,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.Recalculate()
	order.ShippingCost = svc.Shipping.Cost(order.Subtotal)
	order.Recalculate()

	intentReq := payment.IntentRequest{
		Amount:   order.Total,
		Currency: svc.Currency,
		Metadata: map[string]string{"orderId": order.ID.String(), "userId": actor.ID.String()},
	}
	if key != nil {
		intentReq.Metadata["clientOrderId"] = strings.TrimSpace(req.ClientOrderID)
		// The gateway key is per attempt. A failed attempt cancels its
		// intent, so a retry must not be handed that intent back.
		intentReq.IdempotencyKey = *key + ":" + order.ID.String()
	}
	intent, err := svc.Payments.CreateIntent(ctx, intentReq)
	if err != nil {
		l.Error("place_order_error", "status", 502, "reason", "create payment intent", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	order.PaymentIntentID = intent.ID
	order.AppendStatus(models.OrderPending, "Order placed", now)

	levels, err := svc.Repo.CreateOrder(ctx, order, svc.prefix(), now)
	if err != nil {
		svc.cancelIntent(ctx, intent.ID)
		if key != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent request with the same key won the insert.
			if res, rerr := svc.replay(ctx, *key); rerr == nil && res != nil {
				return res, nil
			}
		}
		l.Warn("place_order_error", "reason", "persist order", "error", err)
		return nil, storeErr(err, "order")
	}

	l.Info("place_order_success", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.Total.StringFixed(2))
	svc.sendConfirmation(ctx, order)

	return &CheckoutResult{Order: order, ClientSecret: intent.ClientSecret, Inventory: levels}, nil
}

func (svc *OrderService) replay(ctx context.Context, key string) (*CheckoutResult, error) {
	existing, err := svc.Repo.FindOrderByCheckoutKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := &CheckoutResult{Order: existing, Replayed: true, Inventory: []repo.InventoryLevel{}}
	if existing.PaymentIntentID != "" {
		intent, err := svc.Payments.GetIntent(ctx, existing.PaymentIntentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		res.ClientSecret = intent.ClientSecret
	}
	return res, nil
}

func (svc *OrderService) cancelIntent(ctx context.Context, intentID string) {
	cctx, cancel := detached(ctx)
	defer cancel()
	if err := svc.Payments.CancelIntent(cctx, intentID); err != nil {
		logging.FromContext(ctx).Error("cancel_intent_error", "intent_id", intentID, "error", err)
	}
}

func (svc *OrderService) sendConfirmation(ctx context.Context, order *models.Order) {
	if svc.Mail == nil {
		return
	}
	l := logging.FromContext(ctx)
	go func() {
		mctx, cancel := detached(ctx)
		defer cancel()
		u, err := svc.Repo.GetUserByID(mctx, order.UserID)
		if err == nil {
			err = svc.Mail.OrderConfirmation(mctx, u, order)
		}
		if err != nil {
			l.Warn("order_confirmation_mail_error", "order_id", order.ID, "error", err)
		}
	}()
}

func (svc *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := svc.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !actor.IsStaff() && order.UserID != actor.ID {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}
	return order, nil
}

func parseDateBound(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ListOrders restricts non-staff callers to their own orders.
func (svc *OrderService) ListOrders(ctx context.Context, actor Actor, q transport.OrderQuery) ([]models.Order, util.Pagination, error) {
	f := repo.OrderFilter{
		Search:        q.Search,
		Status:        models.OrderStatus(q.Status),
		PaymentStatus: models.PaymentStatus(q.PaymentStatus),
		Sort:          q.Sort,
	}
	var err error
	if f.From, err = parseDateBound(q.StartDate, false); err != nil {
		return nil, util.Pagination{}, err
	}
	if f.To, err = parseDateBound(q.EndDate, true); err != nil {
		return nil, util.Pagination{}, err
	}

	switch {
	case !actor.IsStaff():
		f.UserID = &actor.ID
	case q.User != "":
		uid, err := uuid.Parse(q.User)
		if err != nil {
			return nil, util.Pagination{}, fmt.Errorf("%w: invalid user id", ErrValidation)
		}
		f.UserID = &uid
	}

	offset, limit := util.Calculate(q.Page, q.Limit)
	total, orders, err := svc.Repo.ListOrders(ctx, f, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return orders, util.NewPagination(offset, limit, total), nil
}

// MyOrders lists the caller's own orders regardless of role.
func (svc *OrderService) MyOrders(ctx context.Context, actor Actor, q transport.OrderQuery) ([]models.Order, util.Pagination, error) {
	self := Actor{ID: actor.ID, Role: models.RoleCustomer}
	return svc.ListOrders(ctx, self, q)
}

// UpdateStatus moves the order along the transition table and appends to
// its history. Re-posting the current status only amends tracking data.
func (svc *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateOrderStatusRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update_status", "order_id", id)

	next := models.OrderStatus(req.Status)
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	order, err := svc.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !order.OrderStatus.CanTransitionTo(next) {
		l.Warn("update_status_error", "status", 409, "from", order.OrderStatus, "to", next)
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.OrderStatus, next)
	}

	now := nowFunc(svc.Now)
	order.OrderStatus = next
	if req.TrackingNumber != nil {
		order.TrackingNumber = strings.TrimSpace(*req.TrackingNumber)
	}
	if req.EstimatedDeliveryDate != nil {
		eta := req.EstimatedDeliveryDate.UTC()
		order.EstimatedDeliveryDate = &eta
	}
	entry := order.AppendStatus(next, strings.TrimSpace(req.Note), now)
	order.UpdatedAt = now

	if err := svc.Repo.UpdateOrderStatus(ctx, order, entry); err != nil {
		return nil, storeErr(err, "order")
	}
	l.Info("update_status_success", "to", next)

	svc.notifyStatus(ctx, order)
	return order, nil
}

func (svc *OrderService) notifyStatus(ctx context.Context, order *models.Order) {
	l := logging.FromContext(ctx)
	n := &models.Notification{
		UserID:  order.UserID,
		Message: fmt.Sprintf("Your order %s is now %s", order.OrderNumber, order.OrderStatus),
		Type:    models.NotificationOrder,
	}
	if err := svc.Repo.AddNotification(ctx, n); err != nil {
		l.Warn("order_notification_error", "order_id", order.ID, "error", err)
	}
	if svc.Mail == nil {
		return
	}
	snapshot := *order
	go func() {
		mctx, cancel := detached(ctx)
		defer cancel()
		u, err := svc.Repo.GetUserByID(mctx, snapshot.UserID)
		if err == nil {
			err = svc.Mail.OrderStatusUpdate(mctx, u, &snapshot)
		}
		if err != nil {
			l.Warn("order_status_mail_error", "order_id", snapshot.ID, "error", err)
		}
	}()
}

// ProcessRefund refunds amount, or the whole total when amount is nil. A full
// refund returns the ordered quantities to stock.
func (svc *OrderService) ProcessRefund(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, reason string) (*RefundResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.refund", "order_id", id)

	order, err := svc.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if order.PaymentStatus == models.PaymentRefunded {
		return nil, ErrAlreadyRefunded
	}
	if order.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: order has no payment to refund", ErrConflict)
	}

	amt := order.Total
	if amount != nil {
		amt = amount.Round(2)
	}
	if !amt.IsPositive() || amt.GreaterThan(order.Total) {
		return nil, fmt.Errorf("%w: amount must be in (0, %s]", ErrValidation, order.Total.StringFixed(2))
	}

	rf, err := svc.Payments.Refund(ctx, order.PaymentIntentID, amt)
	if err != nil {
		l.Error("refund_error", "status", 502, "reason", "gateway refund", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	full := amt.Equal(order.Total)
	note := "Order refunded"
	if !full {
		note = fmt.Sprintf("Partial refund of %s", amt.StringFixed(2))
	}
	if r := strings.TrimSpace(reason); r != "" {
		note += ": " + r
	}
	now := nowFunc(svc.Now)
	entry := order.AppendStatus(models.OrderCancelled, note, now)

	levels, err := svc.Repo.ApplyRefund(ctx, order, entry, full)
	if err != nil {
		l.Error("refund_error", "reason", "persist refund", "refund_id", rf.ID, "error", err)
		return nil, storeErr(err, "order")
	}

	updated, err := svc.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	l.Info("refund_success", "amount", amt.StringFixed(2), "full", full)
	if levels == nil {
		levels = []repo.InventoryLevel{}
	}
	return &RefundResult{Order: updated, Refund: rf, Inventory: levels}, nil
}

// HandlePaymentEvent applies a verified webhook. It returns the updated order
// or nil when the event changed nothing.
func (svc *OrderService) HandlePaymentEvent(ctx context.Context, ev *payment.WebhookEvent) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.payment_event", "event_type", ev.Type, "intent_id", ev.PaymentIntentID)

	var status models.PaymentStatus
	var note string
	switch ev.Type {
	case payment.EventIntentSucceeded:
		status, note = models.PaymentPaid, "Payment received"
	case payment.EventIntentFailed:
		status, note = models.PaymentFailed, "Payment failed"
	default:
		return nil, nil
	}
	if ev.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: event has no payment intent", ErrValidation)
	}

	order, err := svc.Repo.FindOrderByPaymentIntent(ctx, ev.PaymentIntentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Warn("payment_event_ignored", "reason", "unknown intent")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status || order.PaymentStatus == models.PaymentRefunded {
		return nil, nil
	}

	now := nowFunc(svc.Now)
	entry := models.OrderStatusEntry{OrderID: order.ID, Status: order.OrderStatus, Note: note, Date: now}
	changed, err := svc.Repo.SetPaymentStatus(ctx, order.ID, status, entry)
	if err != nil || !changed {
		return nil, err
	}
	l.Info("payment_event_applied", "order_id", order.ID, "payment_status", status)
	return svc.Repo.GetOrder(ctx, order.ID)
}

func (svc *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := svc.Repo.DeleteOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	return order, nil
}

func (svc *OrderService) Stats(ctx context.Context) (*repo.OrderStats, error) {
	since := nowFunc(svc.Now).AddDate(0, 0, -30)
	return svc.Repo.OrderStats(ctx, since)
}
