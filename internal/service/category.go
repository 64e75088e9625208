package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/internal/util"
)

type CategoryService struct {
	Repo *repo.GormRepo
}

func (svc *CategoryService) List(ctx context.Context, q transport.CategoryQuery) ([]models.Category, util.Pagination, error) {
	f := repo.CategoryFilter{
		Search: q.Search,
		Status: models.CategoryStatus(q.Status),
		Sort:   q.Sort,
	}
	switch q.Featured {
	case "true", "false":
		b := q.Featured == "true"
		f.Featured = &b
	case "":
	default:
		return nil, util.Pagination{}, fmt.Errorf("%w: featured must be true or false", ErrValidation)
	}
	if q.Parent != "" {
		id, err := uuid.Parse(q.Parent)
		if err != nil {
			return nil, util.Pagination{}, fmt.Errorf("%w: invalid parent id", ErrValidation)
		}
		f.ParentID = &id
	}

	offset, limit := util.Calculate(q.Page, q.Limit)
	total, items, err := svc.Repo.ListCategories(ctx, f, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return items, util.NewPagination(offset, limit, total), nil
}

func (svc *CategoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := svc.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}

// BuildTree nests categories under their parents. Categories whose parent is
// not in the list become roots.
func BuildTree(all []models.Category) []*models.Category {
	nodes := make(map[uuid.UUID]*models.Category, len(all))
	for i := range all {
		c := all[i]
		c.Children = nil
		nodes[c.ID] = &c
	}
	roots := make([]*models.Category, 0)
	for i := range all {
		node := nodes[all[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

func (svc *CategoryService) Tree(ctx context.Context, status models.CategoryStatus) ([]*models.Category, error) {
	all, err := svc.Repo.AllCategories(ctx, status)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

// checkParent rejects a missing parent, the category itself, and any of its
// descendants.
func (svc *CategoryService) checkParent(ctx context.Context, self uuid.UUID, parent *uuid.UUID) error {
	if parent == nil {
		return nil
	}
	if self != uuid.Nil && *parent == self {
		return fmt.Errorf("%w: category cannot be its own parent", ErrValidation)
	}
	if _, err := svc.Repo.GetCategory(ctx, *parent); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: parent category %s does not exist", ErrValidation, *parent)
		}
		return err
	}
	if self == uuid.Nil {
		return nil
	}
	below, err := svc.Repo.IsDescendant(ctx, self, *parent)
	if err != nil {
		return err
	}
	if below {
		return fmt.Errorf("%w: parent cannot be a subcategory of this category", ErrValidation)
	}
	return nil
}

func (svc *CategoryService) Create(ctx context.Context, req transport.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if models.Slugify(name) == "" {
		return nil, fmt.Errorf("%w: name must contain letters or digits", ErrValidation)
	}
	if err := svc.checkParent(ctx, uuid.Nil, req.ParentCategory); err != nil {
		return nil, err
	}
	c := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		ParentID:    req.ParentCategory,
		Status:      models.CategoryStatus(req.Status),
		Featured:    req.Featured,
	}
	if err := svc.Repo.CreateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}

func (svc *CategoryService) Update(ctx context.Context, id uuid.UUID, req transport.UpdateCategoryRequest) (*models.Category, error) {
	c, err := svc.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if models.Slugify(name) == "" {
			return nil, fmt.Errorf("%w: name must contain letters or digits", ErrValidation)
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Image != nil {
		fields["image"] = strings.TrimSpace(*req.Image)
	}
	if req.Status != nil {
		fields["status"] = models.CategoryStatus(*req.Status)
	}
	if req.Featured != nil {
		fields["featured"] = *req.Featured
	}
	if req.ParentCategory != nil {
		if err := svc.checkParent(ctx, c.ID, req.ParentCategory); err != nil {
			return nil, err
		}
		fields["parent_id"] = *req.ParentCategory
	}
	updated, err := svc.Repo.UpdateCategory(ctx, id, fields)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	return updated, nil
}

func (svc *CategoryService) Delete(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := svc.Repo.DeleteCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}
