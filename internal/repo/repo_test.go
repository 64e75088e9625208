package repo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/testutil"
)

func TestLikePattern(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Mug":      "%mug%",
		" 50% ":    "%50!%%",
		"snake_c":  "%snake!_c%",
		"wow!":     "%wow!!%",
		`back\sl`: `%back\sl%`,
	}
	for in, want := range tests {
		assert.Equal(t, want, likePattern(in), in)
	}
	assert.Equal(t, "LOWER(a) LIKE ? ESCAPE '!' OR LOWER(b) LIKE ? ESCAPE '!'", ilike("a", "b"))
}

func TestListProducts_SearchTreatsWildcardsLiterally(t *testing.T) {
	t.Parallel()
	r := New(testutil.NewDB(t))
	ctx := context.Background()

	cat := &models.Category{Name: "Kitchen"}
	require.NoError(t, r.CreateCategory(ctx, cat))
	for _, name := range []string{"50% off mug", "500 mugs", "snake_case cup", "snakeXcase cup", "Wow! Mug"} {
		require.NoError(t, r.CreateProduct(ctx, &models.Product{
			Name:        name,
			Description: "kitchen",
			Price:       decimal.NewFromInt(1),
			CategoryID:  cat.ID,
			Stock:       1,
		}))
	}

	names := func(search string) []string {
		t.Helper()
		_, items, err := r.ListProducts(ctx, ProductFilter{Search: search}, Page{Limit: 10})
		require.NoError(t, err)
		out := make([]string, 0, len(items))
		for _, p := range items {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"50% off mug"}, names("50%"))
	assert.Equal(t, []string{"snake_case cup"}, names("snake_"))
	assert.Equal(t, []string{"Wow! Mug"}, names("wow!"))
	assert.Len(t, names("mug"), 3)
}
