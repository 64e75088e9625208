package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want int64
	}{
		{"30.5", 3050},
		{"0.01", 1},
		{"12.345", 1235},
		{"0", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToMinorUnits(decimal.RequireFromString(tc.in)), tc.in)
	}
	assert.True(t, FromMinorUnits(3050).Equal(decimal.RequireFromString("30.50")))
}

func TestOfflineGateway_IdempotentIntent(t *testing.T) {
	t.Parallel()
	g := NewOffline()
	ctx := context.Background()

	req := IntentRequest{Amount: decimal.NewFromInt(10), Currency: "usd", IdempotencyKey: "u1:c1"}
	a, err := g.CreateIntent(ctx, req)
	require.NoError(t, err)
	b, err := g.CreateIntent(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ClientSecret, b.ClientSecret)

	c, err := g.CreateIntent(ctx, IntentRequest{Amount: decimal.NewFromInt(10), Currency: "usd"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestOfflineGateway_CancelAndRefund(t *testing.T) {
	t.Parallel()
	g := NewOffline()
	ctx := context.Background()

	in, err := g.CreateIntent(ctx, IntentRequest{Amount: decimal.NewFromInt(20), Currency: "usd"})
	require.NoError(t, err)

	_, err = g.Refund(ctx, in.ID, decimal.NewFromInt(25))
	require.Error(t, err)

	rf, err := g.Refund(ctx, in.ID, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "succeeded", rf.Status)

	require.NoError(t, g.CancelIntent(ctx, in.ID))
	got, err := g.GetIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", got.Status)

	require.ErrorIs(t, g.CancelIntent(ctx, "nope"), ErrUnknownIntent)
}

func TestOfflineGateway_ParseWebhook(t *testing.T) {
	t.Parallel()
	g := NewOffline()

	ev, err := g.ParseWebhook([]byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`), "")
	require.NoError(t, err)
	assert.Equal(t, EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_1", ev.PaymentIntentID)

	_, err = g.ParseWebhook([]byte(`not json`), "")
	require.ErrorIs(t, err, ErrInvalidSignature)
}
