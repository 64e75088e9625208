package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderRecalculate(t *testing.T) {
	t.Parallel()
	o := Order{
		Items: []OrderItem{
			{Quantity: 2, Price: decimal.NewFromInt(10)},
			{Quantity: 1, Price: decimal.NewFromInt(5)},
		},
		ShippingCost: decimal.NewFromInt(3),
	}
	o.Recalculate()
	assert.Equal(t, "25", o.Subtotal.String())
	assert.Equal(t, "2.5", o.Tax.String())
	assert.Equal(t, "30.5", o.Total.String())

	o.Items = []OrderItem{{Quantity: 3, Price: decimal.RequireFromString("0.33")}}
	o.ShippingCost = decimal.Zero
	o.Recalculate()
	assert.Equal(t, "0.99", o.Subtotal.String())
	assert.Equal(t, "0.1", o.Tax.String())
}

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},
		{OrderShipped, OrderShipped, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "home-garden", Slugify("Home & Garden"))
	assert.Equal(t, "tv-s-2024", Slugify("  TV's 2024!! "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestProductRatings(t *testing.T) {
	t.Parallel()
	p := Product{Ratings: []Rating{{Rating: 5}, {Rating: 4}, {Rating: 4}}}
	p.RecalculateRatings()
	assert.Equal(t, 3, p.TotalReviews)
	assert.InDelta(t, 4.3, p.AverageRating, 0.001)
	assert.Equal(t, OutOfStock, StatusForStock(0))
	assert.Equal(t, InStock, StatusForStock(2))
}
