package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/transport"
)

func TestProductCreate_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	stock := 1
	neg := -1

	tests := []struct {
		name string
		req  transport.CreateProductRequest
	}{
		{"negative price", transport.CreateProductRequest{Name: "a", Description: "b", Price: decimal.NewFromInt(-1), Category: f.category.ID, Stock: &stock}},
		{"missing stock", transport.CreateProductRequest{Name: "a", Description: "b", Price: decimal.NewFromInt(1), Category: f.category.ID}},
		{"negative stock", transport.CreateProductRequest{Name: "a", Description: "b", Price: decimal.NewFromInt(1), Category: f.category.ID, Stock: &neg}},
		{"unknown category", transport.CreateProductRequest{Name: "a", Description: "b", Price: decimal.NewFromInt(1), Category: uuid.New(), Stock: &stock}},
	}
	for _, tt := range tests {
		_, err := f.products.Create(ctx, tt.req)
		require.ErrorIs(t, err, ErrValidation, tt.name)
	}
}

func TestProductStatusFollowsStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.addProduct(t, "Bowl", "4.5", 0)
	assert.Equal(t, models.OutOfStock, p.Status)

	stock := 7
	p, err := f.products.Update(ctx, p.ID, transport.UpdateProductRequest{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, models.InStock, p.Status)

	cat, err := f.cats.Get(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.ProductCount)
}

func TestProductUpdate_KeepsConcurrentStockChanges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Kettle", "10", 5)

	arm := f.interleave(t, "products", func() {
		_, err := f.orders.PlaceOrder(ctx, f.customer, checkoutRequest(
			transport.OrderItemRequest{ProductID: p.ID, Quantity: 2},
		))
		require.NoError(t, err)
	})
	arm()

	name := "Copper Kettle"
	updated, err := f.products.Update(ctx, p.ID, transport.UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Copper Kettle", updated.Name)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, 3, f.stock(t, p))
}

func TestProductUpdate_CategoryMoveShiftsCounts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Kettle", "10", 5)
	other, err := f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "Garden"})
	require.NoError(t, err)

	updated, err := f.products.Update(ctx, p.ID, transport.UpdateProductRequest{Category: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.CategoryID)
	assert.Equal(t, 5, updated.Stock)

	from, err := f.cats.Get(ctx, f.category.ID)
	require.NoError(t, err)
	to, err := f.cats.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, from.ProductCount)
	assert.Equal(t, 1, to.ProductCount)
}

func TestProductSearch_FallsBackToDatabase(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addProduct(t, "Copper Kettle", "30", 2)
	f.addProduct(t, "Tea Towel", "3", 2)

	items, pg, err := f.products.Search(context.Background(), transport.SearchQuery{Q: "kettle"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Copper Kettle", items[0].Name)
	assert.EqualValues(t, 1, pg.Total)

	_, _, err = f.products.Search(context.Background(), transport.SearchQuery{Q: "  "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRatings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Pan", "20", 2)
	other := f.addUser(t, "rater@example.com", models.RoleCustomer)

	got, err := f.products.AddRating(ctx, f.customer, p.ID, transport.RatingRequest{Rating: 5, Review: "great"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalReviews)

	_, err = f.products.AddRating(ctx, f.customer, p.ID, transport.RatingRequest{Rating: 1})
	require.ErrorIs(t, err, ErrConflict)

	got, err = f.products.AddRating(ctx, other, p.ID, transport.RatingRequest{Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalReviews)
	assert.InDelta(t, 3.5, got.AverageRating, 0.001)

	var mine models.Rating
	for _, r := range got.Ratings {
		if r.UserID == f.customer.ID {
			mine = r
		}
	}
	require.NotEqual(t, uuid.Nil, mine.ID)

	four := 4
	_, err = f.products.UpdateRating(ctx, other, p.ID, mine.ID, transport.UpdateRatingRequest{Rating: &four})
	require.ErrorIs(t, err, ErrForbidden)

	got, err = f.products.UpdateRating(ctx, f.customer, p.ID, mine.ID, transport.UpdateRatingRequest{Rating: &four})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.AverageRating, 0.001)

	_, err = f.products.DeleteRating(ctx, other, p.ID, mine.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err = f.products.DeleteRating(ctx, f.admin, p.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalReviews)
	assert.InDelta(t, 2.0, got.AverageRating, 0.001)

	_, err = f.products.AddRating(ctx, f.customer, uuid.New(), transport.RatingRequest{Rating: 3})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryDeleteWithDependents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.addProduct(t, "Knife", "12", 1)
	_, err := f.cats.Delete(ctx, f.category.ID)
	require.ErrorIs(t, err, ErrHasDependents)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.products.Delete(ctx, p.ID)
	require.NoError(t, err)

	parent := f.category.ID
	child, err := f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "Knives", ParentCategory: &parent})
	require.NoError(t, err)
	_, err = f.cats.Delete(ctx, f.category.ID)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.cats.Delete(ctx, child.ID)
	require.NoError(t, err)
	_, err = f.cats.Delete(ctx, f.category.ID)
	require.NoError(t, err)

	_, err = f.cats.Get(ctx, f.category.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryUpdate_KeepsConcurrentProductCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "Kettle", "10", 5)

	arm := f.interleave(t, "categories", func() {
		f.addProduct(t, "Teapot", "12", 1)
	})
	arm()

	name := "Kitchen & Dining"
	updated, err := f.cats.Update(ctx, f.category.ID, transport.UpdateCategoryRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "kitchen-dining", updated.Slug)
	assert.Equal(t, 2, updated.ProductCount)
}

func TestCategoryParentChecks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	root := f.category.ID
	mid, err := f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "Cookware", ParentCategory: &root})
	require.NoError(t, err)
	assert.Equal(t, "cookware", mid.Slug)
	leafParent := mid.ID
	leaf, err := f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "Cast Iron Pans", ParentCategory: &leafParent})
	require.NoError(t, err)
	assert.Equal(t, "cast-iron-pans", leaf.Slug)

	missing := uuid.New()
	_, err = f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "Orphan", ParentCategory: &missing})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.cats.Update(ctx, root, transport.UpdateCategoryRequest{ParentCategory: &root})
	require.ErrorIs(t, err, ErrValidation)

	leafID := leaf.ID
	_, err = f.cats.Update(ctx, root, transport.UpdateCategoryRequest{ParentCategory: &leafID})
	require.ErrorIs(t, err, ErrValidation, "cycle through a descendant")

	_, err = f.cats.Create(ctx, transport.CreateCategoryRequest{Name: "kitchen"})
	require.ErrorIs(t, err, ErrConflict, "slug collision")

	tree, err := f.cats.Tree(ctx, "")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "Cast Iron Pans", tree[0].Children[0].Children[0].Name)
}

func TestBuildTree_OrphansBecomeRoots(t *testing.T) {
	t.Parallel()
	gone := uuid.New()
	a := models.Category{ID: uuid.New(), Name: "A"}
	b := models.Category{ID: uuid.New(), Name: "B", ParentID: &a.ID}
	c := models.Category{ID: uuid.New(), Name: "C", ParentID: &gone}

	roots := BuildTree([]models.Category{a, b, c})
	require.Len(t, roots, 2)
	assert.Equal(t, "A", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "B", roots[0].Children[0].Name)
	assert.Equal(t, "C", roots[1].Name)
}
