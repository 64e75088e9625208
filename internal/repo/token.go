package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_backend/internal/models"
	jwthelp "github.com/Skotchmaster/shop_backend/pkg/jwt"
)

var ErrTokenRevoked = errors.New("token expired or revoked")

func (r *GormRepo) AddRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func refreshUsable(db *gorm.DB, jti string, now time.Time) (*models.RefreshToken, error) {
	var refresh models.RefreshToken
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("jti = ?", jti).First(&refresh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	if refresh.Revoked || refresh.ExpiresAt < now.Unix() {
		return nil, ErrTokenRevoked
	}
	return &refresh, nil
}

// RotateRefreshToken revokes oldJTI and stores next in one transaction.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := refreshUsable(tx, oldJTI, time.Now()); err != nil {
			return err
		}
		if err := tx.Model(&models.RefreshToken{}).
			Where("jti = ?", oldJTI).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", jwthelp.Sha256Hex(refreshToken)).
		Update("revoked", true).Error
}

func (r *GormRepo) RevokeUserTokens(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// IssueUserToken stores t and retires the user's earlier unused tokens of the
// same purpose, so only the latest emailed link works.
func (r *GormRepo) IssueUserToken(ctx context.Context, t *models.UserToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserToken{}).
			Where("user_id = ? AND purpose = ? AND used = ?", t.UserID, t.Purpose, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// ConsumeUserToken marks the token used and returns its owner. Unknown, used
// and expired tokens all yield ErrTokenRevoked.
func (r *GormRepo) ConsumeUserToken(ctx context.Context, purpose models.TokenPurpose, token string, now time.Time) (uuid.UUID, error) {
	var row models.UserToken
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ? AND purpose = ?", jwthelp.Sha256Hex(token), purpose).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenRevoked
			}
			return err
		}
		if row.Used || row.ExpiresAt < now.Unix() {
			return ErrTokenRevoked
		}
		res := tx.Model(&models.UserToken{}).Where("id = ? AND used = ?", row.ID, false).Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenRevoked
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return row.UserID, nil
}
