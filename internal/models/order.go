package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo allows re-posting the current status so tracking data can
// be amended without moving the order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	return slices.Contains(orderTransitions[s], next)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	CreditCard PaymentMethod = "credit_card"
	DebitCard  PaymentMethod = "debit_card"
	PayPal     PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == CreditCard || m == DebitCard || m == PayPal
}

// TaxRate is applied to the subtotal of every order.
var TaxRate = decimal.New(1, -1)

type Address struct {
	FirstName   string `gorm:"size:50"  json:"firstName"`
	LastName    string `gorm:"size:50"  json:"lastName"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `gorm:"size:20"  json:"postalCode"`
	Country     string `json:"country"`
	PhoneNumber string `gorm:"size:30"  json:"phoneNumber,omitempty"`
}

type Order struct {
	ID              uuid.UUID     `gorm:"primaryKey"                           json:"id"`
	OrderNumber     string        `gorm:"size:32;uniqueIndex;not null"         json:"orderNumber"`
	UserID          uuid.UUID     `gorm:"index;not null"                       json:"user"`
	Items           []OrderItem   `gorm:"constraint:OnDelete:CASCADE;"         json:"items"`
	ShippingAddress Address       `gorm:"embedded;embeddedPrefix:shipping_"    json:"shippingAddress"`
	BillingAddress  Address       `gorm:"embedded;embeddedPrefix:billing_"     json:"billingAddress"`
	PaymentMethod   PaymentMethod `gorm:"size:20;not null"                     json:"paymentMethod"`
	PaymentStatus   PaymentStatus `gorm:"size:20;not null;index"               json:"paymentStatus"`
	OrderStatus     OrderStatus   `gorm:"size:20;not null;index"               json:"orderStatus"`
	PaymentIntentID string        `gorm:"size:255;index"                       json:"-"`
	CheckoutKey     *string       `gorm:"size:255;uniqueIndex"                 json:"-"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shippingCost"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	TrackingNumber        string             `json:"trackingNumber,omitempty"`
	EstimatedDeliveryDate *time.Time         `json:"estimatedDeliveryDate,omitempty"`
	Notes                 string             `gorm:"size:1000"                    json:"notes,omitempty"`
	StatusHistory         []OrderStatusEntry `gorm:"constraint:OnDelete:CASCADE;" json:"statusHistory"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	if o.OrderStatus == "" {
		o.OrderStatus = OrderPending
	}
	o.Recalculate()
	return nil
}

// Subtotal sums price times quantity over the lines.
func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Recalculate derives subtotal, tax and total from the items and shipping cost.
func (o *Order) Recalculate() {
	o.Subtotal = Subtotal(o.Items)
	o.Tax = o.Subtotal.Mul(TaxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax).Add(o.ShippingCost)
}

func (o *Order) AppendStatus(status OrderStatus, note string, at time.Time) OrderStatusEntry {
	entry := OrderStatusEntry{OrderID: o.ID, Status: status, Note: note, Date: at}
	o.StatusHistory = append(o.StatusHistory, entry)
	return entry
}

type OrderItem struct {
	ID          uuid.UUID       `gorm:"primaryKey"                  json:"id"`
	OrderID     uuid.UUID       `gorm:"index;not null"              json:"-"`
	ProductID   uuid.UUID       `gorm:"index;not null"              json:"product"`
	ProductName string          `gorm:"size:100"                    json:"name"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderStatusEntry struct {
	ID      uuid.UUID   `gorm:"primaryKey"            json:"-"`
	OrderID uuid.UUID   `gorm:"index;not null"        json:"-"`
	Status  OrderStatus `gorm:"size:20;not null"      json:"status"`
	Note    string      `gorm:"size:500"              json:"note,omitempty"`
	Date    time.Time   `gorm:"not null;index"        json:"date"`
}

func (OrderStatusEntry) TableName() string { return "order_status_history" }

func (e *OrderStatusEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// OrderSequence holds the last order number issued on a given day.
type OrderSequence struct {
	Day   string `gorm:"primaryKey;size:10"`
	Value int64  `gorm:"not null"`
}
