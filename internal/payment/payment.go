// Package payment talks to the card processor. The Stripe gateway is used in
// production, the offline gateway when no secret key is configured.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrUnknownIntent    = errors.New("payment: unknown payment intent")
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
}

type Refund struct {
	ID     string
	Amount decimal.Decimal
	Status string
}

// WebhookEvent is the processor-neutral part of a verified webhook.
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// ToMinorUnits converts 12.345 to 1235 cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
