package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/transport"
)

func ptr[T any](v T) *T { return &v }

func TestUserAdmin_SuperAdminGuard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := &UserService{Repo: f.repo}
	root := f.addUser(t, "root@example.com", models.RoleSuperAdmin)

	_, err := users.Create(ctx, f.admin, transport.CreateUserRequest{
		FirstName: "Eve", LastName: "X", Email: "eve@example.com", Password: "password1", Role: "super-admin",
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = users.Update(ctx, f.admin, root.ID, transport.UpdateUserRequest{FirstName: ptr("Mallory")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = users.Update(ctx, f.admin, f.customer.ID, transport.UpdateUserRequest{Role: ptr("super-admin")})
	require.ErrorIs(t, err, ErrForbidden)

	err = users.Delete(ctx, f.admin, root.ID)
	require.ErrorIs(t, err, ErrForbidden)

	promoted, err := users.Update(ctx, root, f.customer.ID, transport.UpdateUserRequest{Role: ptr("admin"), Status: ptr("Inactive")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	assert.Equal(t, models.UserInactive, promoted.Status)

	created, err := users.Create(ctx, root, transport.CreateUserRequest{
		FirstName: "Sam", LastName: "Y", Email: "SAM@example.com", Password: "password1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", created.Email)
	assert.Equal(t, models.RoleCustomer, created.Role)

	_, err = users.Create(ctx, root, transport.CreateUserRequest{
		FirstName: "Sam", LastName: "Y", Email: "sam@example.com", Password: "password1",
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestUserAdmin_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := &UserService{Repo: f.repo}

	require.ErrorIs(t, users.Delete(ctx, f.admin, f.admin.ID), ErrConflict)
	require.ErrorIs(t, users.Delete(ctx, f.admin, uuid.New()), ErrNotFound)

	p := f.addProduct(t, "Tray", "9", 1)
	_, err := users.AddToWishlist(ctx, f.customer, p.ID)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, f.admin, f.customer.ID))
	_, err = users.Get(ctx, f.customer.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProfileAndWishlist(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := &UserService{Repo: f.repo}
	p := f.addProduct(t, "Jar", "6", 4)

	u, err := users.UpdateProfile(ctx, f.customer, transport.UpdateProfileRequest{
		FirstName: ptr(" Alan "),
		Address:   &transport.UserAddressRequest{City: "Manchester"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alan", u.FirstName)
	assert.Equal(t, "Manchester", u.Address.City)
	assert.Equal(t, models.RoleCustomer, u.Role)

	list, err := users.AddToWishlist(ctx, f.customer, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = users.AddToWishlist(ctx, f.customer, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "adding twice keeps one entry")

	_, err = users.AddToWishlist(ctx, f.customer, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	list, err = users.RemoveFromWishlist(ctx, f.customer, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := &UserService{Repo: f.repo}
	o, _ := placeOne(t, f, 1)

	_, err := f.orders.UpdateStatus(ctx, o.ID, transport.UpdateOrderStatusRequest{Status: "processing"})
	require.NoError(t, err)

	notes, err := users.Notifications(ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].Read)
	assert.Contains(t, notes[0].Message, o.OrderNumber)

	_, err = users.MarkNotificationRead(ctx, f.admin, notes[0].ID)
	require.ErrorIs(t, err, ErrNotFound, "other users cannot touch it")

	n, err := users.MarkNotificationRead(ctx, f.customer, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, n.Read)

	require.NoError(t, users.ClearNotifications(ctx, f.customer))
	notes, err = users.Notifications(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
