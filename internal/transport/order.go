package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddressRequest struct {
	FirstName   string `json:"firstName"   validate:"required,max=50"`
	LastName    string `json:"lastName"    validate:"required,max=50"`
	Street      string `json:"street"      validate:"required,max=200"`
	City        string `json:"city"        validate:"required,max=100"`
	State       string `json:"state"       validate:"required,max=100"`
	PostalCode  string `json:"postalCode"  validate:"required,max=20"`
	Country     string `json:"country"     validate:"required,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=30"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product"  validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"           validate:"required,min=1,dive"`
	ShippingAddress AddressRequest     `json:"shippingAddress"`
	BillingAddress  *AddressRequest    `json:"billingAddress"  validate:"omitempty"`
	PaymentMethod   string             `json:"paymentMethod"   validate:"required,oneof=credit_card debit_card paypal"`
	ClientOrderID   string             `json:"clientOrderId"   validate:"omitempty,max=100"`
	Notes           string             `json:"notes"           validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status                string     `json:"status"                validate:"required,oneof=pending processing shipped delivered cancelled"`
	Note                  string     `json:"note"                  validate:"max=500"`
	TrackingNumber        *string    `json:"trackingNumber"        validate:"omitempty,max=100"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" validate:"max=500"`
}

type OrderQuery struct {
	Page          int    `query:"page"`
	Limit         int    `query:"limit"`
	Search        string `query:"search"`
	User          string `query:"user"`
	Status        string `query:"status"        validate:"omitempty,oneof=pending processing shipped delivered cancelled"`
	PaymentStatus string `query:"paymentStatus" validate:"omitempty,oneof=pending paid failed refunded"`
	StartDate     string `query:"startDate"`
	EndDate       string `query:"endDate"`
	Sort          string `query:"sort"`
}
