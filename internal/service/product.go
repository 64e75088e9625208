package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/internal/util"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
)

type ProductService struct {
	Repo  *repo.GormRepo
	Index ProductIndex
	Now   func() time.Time
}

func parseOptionalDecimal(s, field string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrValidation, field)
	}
	return &d, nil
}

func (svc *ProductService) List(ctx context.Context, q transport.ProductQuery) ([]models.Product, util.Pagination, error) {
	f := repo.ProductFilter{
		Search: q.Search,
		Status: models.ProductStatus(q.Status),
		Sort:   q.Sort,
	}
	if q.Category != "" {
		id, err := uuid.Parse(q.Category)
		if err != nil {
			return nil, util.Pagination{}, fmt.Errorf("%w: invalid category id", ErrValidation)
		}
		f.CategoryID = &id
	}
	var err error
	if f.MinPrice, err = parseOptionalDecimal(q.MinPrice, "minPrice"); err != nil {
		return nil, util.Pagination{}, err
	}
	if f.MaxPrice, err = parseOptionalDecimal(q.MaxPrice, "maxPrice"); err != nil {
		return nil, util.Pagination{}, err
	}

	offset, limit := util.Calculate(q.Page, q.Limit)
	total, items, err := svc.Repo.ListProducts(ctx, f, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return items, util.NewPagination(offset, limit, total), nil
}

func (svc *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := svc.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return p, nil
}

// Search uses the index when one is configured and falls back to a LIKE
// query when it is missing or failing.
func (svc *ProductService) Search(ctx context.Context, q transport.SearchQuery) ([]models.Product, util.Pagination, error) {
	l := logging.FromContext(ctx).With("svc", "product.search")
	query := strings.TrimSpace(q.Q)
	if query == "" {
		return nil, util.Pagination{}, fmt.Errorf("%w: q is required", ErrValidation)
	}
	offset, limit := util.Calculate(q.Page, q.Limit)

	if svc.Index != nil {
		total, ids, err := svc.Index.Search(ctx, query, offset, limit)
		if err == nil {
			items, err := svc.Repo.GetProductsByIDs(ctx, ids)
			if err != nil {
				return nil, util.Pagination{}, err
			}
			return items, util.NewPagination(offset, limit, total), nil
		}
		l.Warn("search_index_error", "reason", "falling back to database", "error", err)
	}

	total, items, err := svc.Repo.ListProducts(ctx, repo.ProductFilter{Search: query}, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return items, util.NewPagination(offset, limit, total), nil
}

func (svc *ProductService) requireCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := svc.Repo.GetCategory(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category %s does not exist", ErrValidation, id)
		}
		return err
	}
	return nil
}

func (svc *ProductService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if req.Stock == nil || *req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	if err := svc.requireCategory(ctx, req.Category); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price.Round(2),
		CategoryID:  req.Category,
		Stock:       *req.Stock,
		Images:      models.Strings(req.Images),
		Features:    models.Strings(req.Features),
	}
	if err := svc.Repo.CreateProduct(ctx, p); err != nil {
		return nil, storeErr(err, "product")
	}
	svc.reindex(ctx, p)
	return p, nil
}

func (svc *ProductService) Update(ctx context.Context, id uuid.UUID, req transport.UpdateProductRequest) (*models.Product, error) {
	current, err := svc.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
		fields["price"] = req.Price.Round(2)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
		}
		fields["stock"] = *req.Stock
	}
	if req.Category != nil && *req.Category != current.CategoryID {
		if err := svc.requireCategory(ctx, *req.Category); err != nil {
			return nil, err
		}
		fields["category_id"] = *req.Category
	}
	if req.Images != nil {
		fields["images"] = models.Strings(req.Images)
	}
	if req.Features != nil {
		fields["features"] = models.Strings(req.Features)
	}

	p, err := svc.Repo.UpdateProduct(ctx, id, fields)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	svc.reindex(ctx, p)
	return p, nil
}

func (svc *ProductService) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := svc.Repo.DeleteProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if svc.Index != nil {
		if err := svc.Index.Remove(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_remove_error", "product_id", id, "error", err)
		}
	}
	return p, nil
}

func (svc *ProductService) reindex(ctx context.Context, p *models.Product) {
	if svc.Index == nil {
		return
	}
	if err := svc.Index.Upsert(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}

// Reindex pushes the given products to the search index. Used after
// checkout and refunds change stock.
func (svc *ProductService) Reindex(ctx context.Context, levels []repo.InventoryLevel) {
	if svc.Index == nil || len(levels) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(levels))
	for _, lv := range levels {
		ids = append(ids, lv.ProductID)
	}
	products, err := svc.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "error", err)
		return
	}
	for i := range products {
		svc.reindex(ctx, &products[i])
	}
}

func (svc *ProductService) AddRating(ctx context.Context, actor Actor, productID uuid.UUID, req transport.RatingRequest) (*models.Product, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	p, err := svc.Repo.AddRating(ctx, &models.Rating{
		ProductID: productID,
		UserID:    actor.ID,
		Rating:    req.Rating,
		Review:    strings.TrimSpace(req.Review),
		Date:      nowFunc(svc.Now),
	})
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return p, nil
}

// UpdateRating lets only the author edit a rating.
func (svc *ProductService) UpdateRating(ctx context.Context, actor Actor, productID, ratingID uuid.UUID, req transport.UpdateRatingRequest) (*models.Product, error) {
	p, err := svc.Repo.UpdateRating(ctx, productID, ratingID, func(r *models.Rating) error {
		if r.UserID != actor.ID {
			return fmt.Errorf("%w: not your rating", ErrForbidden)
		}
		if req.Rating != nil {
			if *req.Rating < 1 || *req.Rating > 5 {
				return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
			}
			r.Rating = *req.Rating
		}
		if req.Review != nil {
			r.Review = strings.TrimSpace(*req.Review)
		}
		r.Date = nowFunc(svc.Now)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "rating")
	}
	return p, nil
}

// DeleteRating allows the author or staff.
func (svc *ProductService) DeleteRating(ctx context.Context, actor Actor, productID, ratingID uuid.UUID) (*models.Product, error) {
	p, err := svc.Repo.DeleteRating(ctx, productID, ratingID, func(r *models.Rating) error {
		if r.UserID != actor.ID && !actor.IsStaff() {
			return fmt.Errorf("%w: not your rating", ErrForbidden)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "rating")
	}
	return p, nil
}
