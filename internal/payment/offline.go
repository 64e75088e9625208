package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfflineGateway keeps intents in memory. Webhook payloads are accepted
// unsigned in the Stripe event shape.
type OfflineGateway struct {
	mu      sync.Mutex
	intents map[string]*Intent
	byKey   map[string]string
}

func NewOffline() *OfflineGateway {
	return &OfflineGateway{
		intents: make(map[string]*Intent),
		byKey:   make(map[string]string),
	}
}

func (g *OfflineGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("offline: amount must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.IdempotencyKey != "" {
		if id, ok := g.byKey[req.IdempotencyKey]; ok {
			cp := *g.intents[id]
			return &cp, nil
		}
	}
	id := "pi_offline_" + uuid.NewString()
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString(),
		Status:       "requires_payment_method",
		Amount:       req.Amount,
	}
	g.intents[id] = in
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}
	cp := *in
	return &cp, nil
}

func (g *OfflineGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return nil, ErrUnknownIntent
	}
	cp := *in
	return &cp, nil
}

func (g *OfflineGateway) CancelIntent(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return ErrUnknownIntent
	}
	in.Status = "canceled"
	return nil
}

func (g *OfflineGateway) Refund(_ context.Context, intentID string, amount decimal.Decimal) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return nil, ErrUnknownIntent
	}
	if amount.GreaterThan(in.Amount) {
		return nil, fmt.Errorf("offline: refund %s exceeds intent amount %s", amount, in.Amount)
	}
	return &Refund{ID: "re_offline_" + uuid.NewString(), Amount: amount, Status: "succeeded"}, nil
}

func (g *OfflineGateway) ParseWebhook(payload []byte, _ string) (*WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &WebhookEvent{ID: raw.ID, Type: raw.Type, PaymentIntentID: raw.Data.Object.ID}, nil
}
