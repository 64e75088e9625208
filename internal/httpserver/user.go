package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type UserHTTP struct {
	Svc    *service.UserService
	Notify *Notifier
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.list")

	var q transport.UserQuery
	if err := bind(c, l, "list_users_error", &q); err != nil {
		return err
	}
	users, pg, err := h.Svc.List(ctx, q)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return respondList(c, users, &pg)
}

func (h *UserHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.get")

	id, err := pathID(c, l, "get_user_error", "id")
	if err != nil {
		return err
	}
	u, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_user_error", err)
	}
	return respond(c, http.StatusOK, u)
}

func (h *UserHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.create")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.CreateUserRequest
	if err := bind(c, l, "create_user_error", &req); err != nil {
		return err
	}
	u, err := h.Svc.Create(ctx, a, req)
	if err != nil {
		return fail(l, "create_user_error", err)
	}

	l.Info("create_user_success", "user_id", u.ID)
	h.Notify.Mutation(ctx, "user", KindCreated, u.ID.String(), u)
	return respond(c, http.StatusCreated, u)
}

func (h *UserHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "update_user_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateUserRequest
	if err := bind(c, l, "update_user_error", &req); err != nil {
		return err
	}
	u, err := h.Svc.Update(ctx, a, id, req)
	if err != nil {
		return fail(l, "update_user_error", err)
	}

	l.Info("update_user_success", "user_id", u.ID)
	h.Notify.Mutation(ctx, "user", KindUpdated, u.ID.String(), u)
	return respond(c, http.StatusOK, u)
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_user_error", "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, a, id); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("delete_user_success", "user_id", id)
	h.Notify.Mutation(ctx, "user", KindDeleted, id.String(), map[string]any{"id": id})
	return respond(c, http.StatusOK, map[string]any{})
}

func (h *UserHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update_profile")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.UpdateProfileRequest
	if err := bind(c, l, "update_profile_error", &req); err != nil {
		return err
	}
	u, err := h.Svc.UpdateProfile(ctx, a, req)
	if err != nil {
		return fail(l, "update_profile_error", err)
	}

	h.Notify.Mutation(ctx, "user", KindUpdated, u.ID.String(), u)
	return respond(c, http.StatusOK, u)
}

func (h *UserHTTP) Wishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.wishlist")

	a, err := actor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.Wishlist(ctx, a)
	if err != nil {
		return fail(l, "wishlist_error", err)
	}
	return respondList(c, items, nil)
}

func (h *UserHTTP) AddToWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.add_to_wishlist")

	a, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.WishlistRequest
	if err := bind(c, l, "add_to_wishlist_error", &req); err != nil {
		return err
	}
	items, err := h.Svc.AddToWishlist(ctx, a, req.ProductID)
	if err != nil {
		return fail(l, "add_to_wishlist_error", err)
	}
	return respondList(c, items, nil)
}

func (h *UserHTTP) RemoveFromWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.remove_from_wishlist")

	a, err := actor(c)
	if err != nil {
		return err
	}
	productID, err := pathID(c, l, "remove_from_wishlist_error", "productId")
	if err != nil {
		return err
	}
	items, err := h.Svc.RemoveFromWishlist(ctx, a, productID)
	if err != nil {
		return fail(l, "remove_from_wishlist_error", err)
	}
	return respondList(c, items, nil)
}

func (h *UserHTTP) Notifications(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.notifications")

	a, err := actor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.Notifications(ctx, a)
	if err != nil {
		return fail(l, "notifications_error", err)
	}
	return respondList(c, items, nil)
}

func (h *UserHTTP) MarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.mark_notification_read")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "mark_notification_error", "id")
	if err != nil {
		return err
	}
	n, err := h.Svc.MarkNotificationRead(ctx, a, id)
	if err != nil {
		return fail(l, "mark_notification_error", err)
	}
	return respond(c, http.StatusOK, n)
}

func (h *UserHTTP) ClearNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.clear_notifications")

	a, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.Svc.ClearNotifications(ctx, a); err != nil {
		return fail(l, "clear_notifications_error", err)
	}
	return respond(c, http.StatusOK, map[string]any{})
}
