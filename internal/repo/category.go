package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type CategoryFilter struct {
	Search   string
	Status   models.CategoryStatus
	Featured *bool
	ParentID *uuid.UUID
	Sort     string
}

func (r *GormRepo) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormRepo) ListCategories(ctx context.Context, f CategoryFilter, p Page) (int64, []models.Category, error) {
	q := r.DB.WithContext(ctx).Model(&models.Category{})
	if f.Search != "" {
		pat := likePattern(f.Search)
		q = q.Where(ilike("name", "description"), pat, pat)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Category, 0, p.Limit)
	sort := orderBy(f.Sort, map[string]string{
		"name":         "name",
		"createdAt":    "created_at",
		"productCount": "product_count",
	}, "name ASC")
	if err := q.Order(sort).Offset(p.Offset).Limit(p.Limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) AllCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error) {
	q := r.DB.WithContext(ctx).Model(&models.Category{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	items := make([]models.Category, 0)
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

// UpdateCategory writes only the given columns. product_count is owned by
// the product writes and never goes through here.
func (r *GormRepo) UpdateCategory(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Category, error) {
	delete(fields, "product_count")
	if name, ok := fields["name"].(string); ok {
		fields["slug"] = models.Slugify(name)
	}
	fields["updated_at"] = r.DB.NowFunc()
	res := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetCategory(ctx, id)
}

// DeleteCategory refuses while products or subcategories still point at id.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&category).Error; err != nil {
			return err
		}

		var products int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
			return err
		}
		if products > 0 {
			return fmt.Errorf("%w: %d products", ErrHasDependents, products)
		}

		var children int64
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %d subcategories", ErrHasDependents, children)
		}

		return tx.Delete(&models.Category{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// IsDescendant reports whether candidate sits somewhere below root.
func (r *GormRepo) IsDescendant(ctx context.Context, root, candidate uuid.UUID) (bool, error) {
	all, err := r.AllCategories(ctx, "")
	if err != nil {
		return false, err
	}
	parent := make(map[uuid.UUID]*uuid.UUID, len(all))
	for _, c := range all {
		parent[c.ID] = c.ParentID
	}
	seen := map[uuid.UUID]bool{}
	for cur := parent[candidate]; cur != nil && !seen[*cur]; cur = parent[*cur] {
		if *cur == root {
			return true, nil
		}
		seen[*cur] = true
	}
	return false, nil
}
