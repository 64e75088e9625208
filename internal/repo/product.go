package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

var ErrAlreadyRated = errors.New("product already rated by this user")

type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Status     models.ProductStatus
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// InventoryLevel is the stock of one product after a write.
type InventoryLevel struct {
	ProductID uuid.UUID            `json:"productId"`
	Stock     int                  `json:"stock"`
	Status    models.ProductStatus `json:"status"`
}

func preloadRatings(db *gorm.DB) *gorm.DB {
	return db.Order("date DESC")
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Preload("Ratings", preloadRatings).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs returns the products in the order of ids, skipping ids that
// no longer exist.
func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var found []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter, p Page) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.Search != "" {
		pat := likePattern(f.Search)
		q = q.Where(ilike("name", "description"), pat, pat)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, p.Limit)
	sort := orderBy(f.Sort, map[string]string{
		"createdAt":     "created_at",
		"price":         "price",
		"name":          "name",
		"averageRating": "average_rating",
		"stock":         "stock",
	}, "created_at DESC")
	if err := q.Order(sort).Offset(p.Offset).Limit(p.Limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func adjustProductCount(tx *gorm.DB, categoryID uuid.UUID, delta int) error {
	q := tx.Model(&models.Category{}).Where("id = ?", categoryID)
	if delta < 0 {
		q = q.Where("product_count >= ?", -delta)
	}
	return q.UpdateColumn("product_count", gorm.Expr("product_count + ?", delta)).Error
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return adjustProductCount(tx, p.CategoryID, 1)
	})
}

// UpdateProduct writes only the given columns and returns the stored row.
// Stock is left alone unless fields carries it, so concurrent checkouts keep
// their decrements. A category move shifts both category counts.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Product, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.Product
		if err := tx.Select("id", "category_id").Where("id = ?", id).First(&prev).Error; err != nil {
			return err
		}
		if stock, ok := fields["stock"].(int); ok {
			fields["status"] = models.StatusForStock(stock)
		}
		fields["updated_at"] = tx.NowFunc()
		if err := tx.Model(&models.Product{}).Where("id = ?", id).UpdateColumns(fields).Error; err != nil {
			return err
		}
		if next, ok := fields["category_id"].(uuid.UUID); ok && next != prev.CategoryID {
			if err := adjustProductCount(tx, prev.CategoryID, -1); err != nil {
				return err
			}
			if err := adjustProductCount(tx, next, 1); err != nil {
				return err
			}
		}
		return tx.Preload("Ratings", preloadRatings).Where("id = ?", id).First(&product).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_wishlist WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
			return err
		}
		return adjustProductCount(tx, product.CategoryID, -1)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func refreshRatings(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.Preload("Ratings", preloadRatings).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	product.RecalculateRatings()
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).UpdateColumns(map[string]any{
		"average_rating": product.AverageRating,
		"total_reviews":  product.TotalReviews,
	}).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// AddRating stores a new rating unless the user already rated the product.
func (r *GormRepo) AddRating(ctx context.Context, rating *models.Rating) (*models.Product, error) {
	var product *models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Product{}).Where("id = ?", rating.ProductID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		var dup int64
		if err := tx.Model(&models.Rating{}).
			Where("product_id = ? AND user_id = ?", rating.ProductID, rating.UserID).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrAlreadyRated
		}

		if err := tx.Create(rating).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRated
			}
			return err
		}
		var err error
		product, err = refreshRatings(tx, rating.ProductID)
		return err
	})
	return product, err
}

// UpdateRating loads the rating, lets mutate check and change it, then saves.
func (r *GormRepo) UpdateRating(ctx context.Context, productID, ratingID uuid.UUID, mutate func(*models.Rating) error) (*models.Product, error) {
	var product *models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rating models.Rating
		if err := tx.Where("id = ? AND product_id = ?", ratingID, productID).First(&rating).Error; err != nil {
			return err
		}
		if err := mutate(&rating); err != nil {
			return err
		}
		if err := tx.Save(&rating).Error; err != nil {
			return err
		}
		var err error
		product, err = refreshRatings(tx, productID)
		return err
	})
	return product, err
}

func (r *GormRepo) DeleteRating(ctx context.Context, productID, ratingID uuid.UUID, authorize func(*models.Rating) error) (*models.Product, error) {
	var product *models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rating models.Rating
		if err := tx.Where("id = ? AND product_id = ?", ratingID, productID).First(&rating).Error; err != nil {
			return err
		}
		if err := authorize(&rating); err != nil {
			return err
		}
		if err := tx.Delete(&rating).Error; err != nil {
			return err
		}
		var err error
		product, err = refreshRatings(tx, productID)
		return err
	})
	return product, err
}

func syncProductStatus(tx *gorm.DB, productID uuid.UUID) error {
	return tx.Model(&models.Product{}).Where("id = ?", productID).UpdateColumn(
		"status",
		gorm.Expr("CASE WHEN stock > 0 THEN ? ELSE ? END", models.InStock, models.OutOfStock),
	).Error
}

func inventoryLevels(tx *gorm.DB, ids []uuid.UUID) ([]InventoryLevel, error) {
	var rows []models.Product
	if err := tx.Select("id", "stock", "status").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]InventoryLevel, 0, len(rows))
	for _, p := range rows {
		out = append(out, InventoryLevel{ProductID: p.ID, Stock: p.Stock, Status: p.Status})
	}
	return out, nil
}
