package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type UserFilter struct {
	Search string
	Role   models.Role
	Status models.UserStatus
	Sort   string
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Omit("Wishlist", "Notifications").Create(u).Error
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, f UserFilter, p Page) (int64, []models.User, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	if f.Search != "" {
		pat := likePattern(f.Search)
		q = q.Where(ilike("first_name", "last_name", "email"), pat, pat, pat)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	users := make([]models.User, 0, p.Limit)
	sort := orderBy(f.Sort, map[string]string{
		"createdAt": "created_at",
		"email":     "email",
		"lastName":  "last_name",
		"lastLogin": "last_login",
	}, "created_at DESC")
	if err := q.Order(sort).Offset(p.Offset).Limit(p.Limit).Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return user, nil
	}
	if err := r.DB.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, id)
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: id}
		if err := tx.Model(&user).Association("Wishlist").Clear(); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserToken{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) Wishlist(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	user := models.User{ID: userID}
	products := make([]models.Product, 0)
	if err := r.DB.WithContext(ctx).Model(&user).Association("Wishlist").Find(&products); err != nil {
		return nil, err
	}
	return products, nil
}

// AddToWishlist is a set insert: adding a present product is a no-op.
func (r *GormRepo) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table("user_wishlist").
			Where("user_id = ? AND product_id = ?", userID, productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Table("user_wishlist").Create(map[string]any{
			"user_id":    userID,
			"product_id": productID,
		}).Error
	})
}

func (r *GormRepo) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Exec("DELETE FROM user_wishlist WHERE user_id = ? AND product_id = ?", userID, productID).Error
}

func (r *GormRepo) AddNotification(ctx context.Context, n *models.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *GormRepo) Notifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	items := make([]models.Notification, 0)
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	db := r.DB.WithContext(ctx)
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&n).Update("read", true).Error; err != nil {
		return nil, err
	}
	n.Read = true
	return &n, nil
}

func (r *GormRepo) ClearNotifications(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{}).Error
}
