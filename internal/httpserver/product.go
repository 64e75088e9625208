package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type ProductHTTP struct {
	Svc    *service.ProductService
	Notify *Notifier
}

func levelOf(p *models.Product) []repo.InventoryLevel {
	return []repo.InventoryLevel{{ProductID: p.ID, Stock: p.Stock, Status: p.Status}}
}

func (h *ProductHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	var q transport.ProductQuery
	if err := bind(c, l, "list_products_error", &q); err != nil {
		return err
	}
	items, pg, err := h.Svc.List(ctx, q)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return respondList(c, items, &pg)
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	var q transport.SearchQuery
	if err := bind(c, l, "search_products_error", &q); err != nil {
		return err
	}
	items, pg, err := h.Svc.Search(ctx, q)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return respondList(c, items, &pg)
}

func (h *ProductHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := pathID(c, l, "get_product_error", "id")
	if err != nil {
		return err
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return respond(c, http.StatusOK, p)
}

func (h *ProductHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.CreateProductRequest
	if err := bind(c, l, "create_product_error", &req); err != nil {
		return err
	}
	p, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	h.Notify.Mutation(ctx, "product", KindCreated, p.ID.String(), p)
	h.Notify.Inventory(levelOf(p))
	return respond(c, http.StatusCreated, p)
}

func (h *ProductHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := pathID(c, l, "update_product_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateProductRequest
	if err := bind(c, l, "update_product_error", &req); err != nil {
		return err
	}
	p, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return fail(l, "update_product_error", err)
	}

	l.Info("update_product_success", "product_id", p.ID)
	h.Notify.Mutation(ctx, "product", KindUpdated, p.ID.String(), p)
	if req.Stock != nil {
		h.Notify.Inventory(levelOf(p))
	}
	return respond(c, http.StatusOK, p)
}

func (h *ProductHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := pathID(c, l, "delete_product_error", "id")
	if err != nil {
		return err
	}
	p, err := h.Svc.Delete(ctx, id)
	if err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	h.Notify.Mutation(ctx, "product", KindDeleted, id.String(), p)
	return respond(c, http.StatusOK, map[string]any{})
}

func (h *ProductHTTP) AddRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.add_rating")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "add_rating_error", "id")
	if err != nil {
		return err
	}
	var req transport.RatingRequest
	if err := bind(c, l, "add_rating_error", &req); err != nil {
		return err
	}
	p, err := h.Svc.AddRating(ctx, a, id, req)
	if err != nil {
		return fail(l, "add_rating_error", err)
	}

	h.Notify.Mutation(ctx, "product", KindUpdated, p.ID.String(), p)
	return respond(c, http.StatusCreated, p)
}

func (h *ProductHTTP) UpdateRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_rating")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "update_rating_error", "id")
	if err != nil {
		return err
	}
	ratingID, err := pathID(c, l, "update_rating_error", "ratingId")
	if err != nil {
		return err
	}
	var req transport.UpdateRatingRequest
	if err := bind(c, l, "update_rating_error", &req); err != nil {
		return err
	}
	p, err := h.Svc.UpdateRating(ctx, a, id, ratingID, req)
	if err != nil {
		return fail(l, "update_rating_error", err)
	}

	h.Notify.Mutation(ctx, "product", KindUpdated, p.ID.String(), p)
	return respond(c, http.StatusOK, p)
}

func (h *ProductHTTP) DeleteRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_rating")

	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, l, "delete_rating_error", "id")
	if err != nil {
		return err
	}
	ratingID, err := pathID(c, l, "delete_rating_error", "ratingId")
	if err != nil {
		return err
	}
	p, err := h.Svc.DeleteRating(ctx, a, id, ratingID)
	if err != nil {
		return fail(l, "delete_rating_error", err)
	}

	h.Notify.Mutation(ctx, "product", KindUpdated, p.ID.String(), p)
	return respond(c, http.StatusOK, p)
}
