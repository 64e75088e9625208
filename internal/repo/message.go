package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type MessageFilter struct {
	// Participant limits results to messages sent or received by the user.
	Participant *uuid.UUID
	Status      models.MessageStatus
	Type        models.MessageType
	Sort        string
}

func preloadReplies(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *GormRepo) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := r.DB.WithContext(ctx).Preload("Replies", preloadReplies).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepo) ListMessages(ctx context.Context, f MessageFilter, p Page) (int64, []models.Message, error) {
	q := r.DB.WithContext(ctx).Model(&models.Message{})
	if f.Participant != nil {
		q = q.Where("sender_id = ? OR recipient_id = ?", *f.Participant, *f.Participant)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Message, 0, p.Limit)
	sort := orderBy(f.Sort, map[string]string{
		"createdAt": "created_at",
		"priority":  "priority",
		"status":    "status",
	}, "created_at DESC")
	if err := q.Order(sort).Offset(p.Offset).Limit(p.Limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	return r.DB.WithContext(ctx).Omit("Replies").Create(m).Error
}

func (r *GormRepo) UpdateMessage(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Message, error) {
	res := r.DB.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetMessage(ctx, id)
}

// MarkMessageRead flips an unread message to read. Messages in any other
// status are left alone.
func (r *GormRepo) MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ?", id, models.MessageUnread).
		UpdateColumns(map[string]any{"status": models.MessageRead, "read_at": at, "updated_at": at}).Error
}

func (r *GormRepo) ArchiveMessage(ctx context.Context, id uuid.UUID, at time.Time) (*models.Message, error) {
	if err := r.DB.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"status": models.MessageArchived, "archived_at": at, "updated_at": at}).Error; err != nil {
		return nil, err
	}
	return r.GetMessage(ctx, id)
}

// DeleteMessage removes the message with its whole reply subtree.
func (r *GormRepo) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Message
		if err := tx.Select("id").Where("id = ?", id).First(&root).Error; err != nil {
			return err
		}
		ids := []uuid.UUID{id}
		frontier := []uuid.UUID{id}
		for len(frontier) > 0 {
			var children []uuid.UUID
			if err := tx.Model(&models.Message{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}
		return tx.Where("id IN ?", ids).Delete(&models.Message{}).Error
	})
}
