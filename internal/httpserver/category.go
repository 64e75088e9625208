package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type CategoryHTTP struct {
	Svc    *service.CategoryService
	Notify *Notifier
}

func (h *CategoryHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	var q transport.CategoryQuery
	if err := bind(c, l, "list_categories_error", &q); err != nil {
		return err
	}
	items, pg, err := h.Svc.List(ctx, q)
	if err != nil {
		return fail(l, "list_categories_error", err)
	}
	return respondList(c, items, &pg)
}

func (h *CategoryHTTP) Tree(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.tree")

	status := models.CategoryStatus(c.QueryParam("status"))
	tree, err := h.Svc.Tree(ctx, status)
	if err != nil {
		return fail(l, "category_tree_error", err)
	}
	return respondList(c, tree, nil)
}

func (h *CategoryHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := pathID(c, l, "get_category_error", "id")
	if err != nil {
		return err
	}
	cat, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return respond(c, http.StatusOK, cat)
}

func (h *CategoryHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CreateCategoryRequest
	if err := bind(c, l, "create_category_error", &req); err != nil {
		return err
	}
	cat, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_category_error", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	h.Notify.Mutation(ctx, "category", KindCreated, cat.ID.String(), cat)
	return respond(c, http.StatusCreated, cat)
}

func (h *CategoryHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update")

	id, err := pathID(c, l, "update_category_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateCategoryRequest
	if err := bind(c, l, "update_category_error", &req); err != nil {
		return err
	}
	cat, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return fail(l, "update_category_error", err)
	}

	l.Info("update_category_success", "category_id", cat.ID)
	h.Notify.Mutation(ctx, "category", KindUpdated, cat.ID.String(), cat)
	return respond(c, http.StatusOK, cat)
}

func (h *CategoryHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := pathID(c, l, "delete_category_error", "id")
	if err != nil {
		return err
	}
	cat, err := h.Svc.Delete(ctx, id)
	if err != nil {
		return fail(l, "delete_category_error", err)
	}

	l.Info("delete_category_success", "category_id", id)
	h.Notify.Mutation(ctx, "category", KindDeleted, id.String(), cat)
	return respond(c, http.StatusOK, map[string]any{})
}
