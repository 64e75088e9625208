package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type OrderFilter struct {
	Search        string
	UserID        *uuid.UUID
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	From          *time.Time
	To            *time.Time
	Sort          string
}

func withOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") })
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withOrderDetails(r.DB.WithContext(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) FindOrderByCheckoutKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	if err := withOrderDetails(r.DB.WithContext(ctx)).Where("checkout_key = ?", key).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) FindOrderByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	if err := withOrderDetails(r.DB.WithContext(ctx)).Where("payment_intent_id = ?", intentID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, p Page) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.Search != "" {
		pat := likePattern(f.Search)
		q = q.Where(
			ilike("order_number", "shipping_first_name", "shipping_last_name"),
			pat, pat, pat,
		)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("order_status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, p.Limit)
	sort := orderBy(f.Sort, map[string]string{
		"createdAt":   "created_at",
		"total":       "total",
		"orderNumber": "order_number",
	}, "created_at DESC")
	if err := withOrderDetails(q).Order(sort).Offset(p.Offset).Limit(p.Limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// CreateOrder reserves stock for every line, assigns the order number and
// inserts the order, all in one transaction. A line whose stock dropped
// below its quantity aborts everything with ErrInsufficientStock.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order, prefix string, now time.Time) ([]InventoryLevel, error) {
	var levels []InventoryLevel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, it := range order.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
				UpdateColumns(map[string]any{
					"stock":      gorm.Expr("stock - ?", it.Quantity),
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}
			if err := syncProductStatus(tx, it.ProductID); err != nil {
				return err
			}
			ids = append(ids, it.ProductID)
		}

		number, err := nextOrderNumber(tx, prefix, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		order.CreatedAt = now
		order.UpdatedAt = now

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		levels, err = inventoryLevels(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// UpdateOrderStatus writes the denormalized status fields and appends entry.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, order *models.Order, entry models.OrderStatusEntry) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"order_status":            order.OrderStatus,
			"tracking_number":         order.TrackingNumber,
			"estimated_delivery_date": order.EstimatedDeliveryDate,
			"updated_at":              entry.Date,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
}

// SetPaymentStatus moves the payment status unless the order is already refunded.
func (r *GormRepo) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus, entry models.OrderStatusEntry) (bool, error) {
	changed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", orderID, models.PaymentRefunded).
			Updates(map[string]any{"payment_status": status, "updated_at": entry.Date})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Create(&entry).Error
	})
	return changed, err
}

// ApplyRefund marks the order refunded and cancelled. When restock is set the
// ordered quantities go back to their products.
func (r *GormRepo) ApplyRefund(ctx context.Context, order *models.Order, entry models.OrderStatusEntry, restock bool) ([]InventoryLevel, error) {
	var levels []InventoryLevel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", order.ID, models.PaymentRefunded).
			Updates(map[string]any{
				"payment_status": models.PaymentRefunded,
				"order_status":   models.OrderCancelled,
				"updated_at":     entry.Date,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRefunded
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if !restock {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, it := range order.Items {
			if err := tx.Model(&models.Product{}).Where("id = ?", it.ProductID).UpdateColumns(map[string]any{
				"stock":      gorm.Expr("stock + ?", it.Quantity),
				"updated_at": entry.Date,
			}).Error; err != nil {
				return err
			}
			if err := syncProductStatus(tx, it.ProductID); err != nil {
				return err
			}
			ids = append(ids, it.ProductID)
		}
		var err error
		levels, err = inventoryLevels(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *GormRepo) DeleteOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type StatTotals struct {
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type StatusStat struct {
	Status  models.OrderStatus `json:"status"`
	Count   int64              `json:"count"`
	Revenue decimal.Decimal    `json:"revenue"`
}

type DayStat struct {
	Date    string          `json:"date"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type OrderStats struct {
	Totals   StatTotals   `json:"totalOrders"`
	ByStatus []StatusStat `json:"ordersByStatus"`
	ByDate   []DayStat    `json:"ordersByDate"`
}

// OrderStats aggregates all orders plus a per-day series since since.
func (r *GormRepo) OrderStats(ctx context.Context, since time.Time) (*OrderStats, error) {
	db := r.DB.WithContext(ctx)
	stats := &OrderStats{ByStatus: []StatusStat{}, ByDate: []DayStat{}}

	var totals struct {
		Count   int64
		Revenue decimal.NullDecimal
	}
	if err := db.Model(&models.Order{}).
		Select("COUNT(*) AS count, SUM(total) AS revenue").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.Totals = StatTotals{Count: totals.Count, Revenue: totals.Revenue.Decimal}

	var byStatus []struct {
		Status  models.OrderStatus
		Count   int64
		Revenue decimal.NullDecimal
	}
	if err := db.Model(&models.Order{}).
		Select("order_status AS status, COUNT(*) AS count, SUM(total) AS revenue").
		Group("order_status").
		Order("order_status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, s := range byStatus {
		stats.ByStatus = append(stats.ByStatus, StatusStat{Status: s.Status, Count: s.Count, Revenue: s.Revenue.Decimal})
	}

	var recent []struct {
		CreatedAt time.Time
		Total     decimal.Decimal
	}
	if err := db.Model(&models.Order{}).
		Select("created_at, total").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Scan(&recent).Error; err != nil {
		return nil, err
	}
	index := map[string]int{}
	for _, o := range recent {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(stats.ByDate)
			index[day] = i
			stats.ByDate = append(stats.ByDate, DayStat{Date: day, Revenue: decimal.Zero})
		}
		stats.ByDate[i].Count++
		stats.ByDate[i].Revenue = stats.ByDate[i].Revenue.Add(o.Total)
	}
	return stats, nil
}
