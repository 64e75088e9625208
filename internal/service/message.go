package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/repo"
	"github.com/Skotchmaster/shop_backend/internal/transport"
	"github.com/Skotchmaster/shop_backend/internal/util"
)

type MessageService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

func (svc *MessageService) list(ctx context.Context, participant *uuid.UUID, q transport.MessageQuery) ([]models.Message, util.Pagination, error) {
	offset, limit := util.Calculate(q.Page, q.Limit)
	total, items, err := svc.Repo.ListMessages(ctx, repo.MessageFilter{
		Participant: participant,
		Status:      models.MessageStatus(q.Status),
		Type:        models.MessageType(q.Type),
		Sort:        q.Sort,
	}, repo.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return items, util.NewPagination(offset, limit, total), nil
}

// List returns the caller's sent and received messages.
func (svc *MessageService) List(ctx context.Context, actor Actor, q transport.MessageQuery) ([]models.Message, util.Pagination, error) {
	return svc.list(ctx, &actor.ID, q)
}

func (svc *MessageService) ListAll(ctx context.Context, q transport.MessageQuery) ([]models.Message, util.Pagination, error) {
	return svc.list(ctx, nil, q)
}

// Get marks an unread message read when its recipient opens it.
func (svc *MessageService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Message, error) {
	m, err := svc.Repo.GetMessage(ctx, id)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	if !m.Participant(actor.ID) && !actor.IsStaff() {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	if m.RecipientID == actor.ID && m.Status == models.MessageUnread {
		now := nowFunc(svc.Now)
		if err := svc.Repo.MarkMessageRead(ctx, m.ID, now); err != nil {
			return nil, err
		}
		m.Status = models.MessageRead
		m.ReadAt = &now
	}
	return m, nil
}

func (svc *MessageService) Create(ctx context.Context, actor Actor, req transport.CreateMessageRequest) (*models.Message, error) {
	if _, err := svc.Repo.GetUserByID(ctx, req.Recipient); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recipient not found", ErrNotFound)
		}
		return nil, err
	}
	if req.ParentMessage != nil {
		parent, err := svc.Repo.GetMessage(ctx, *req.ParentMessage)
		if err != nil {
			return nil, storeErr(err, "parent message")
		}
		if !parent.Participant(actor.ID) {
			return nil, fmt.Errorf("%w: cannot reply to a conversation you are not part of", ErrForbidden)
		}
	}
	if req.RelatedOrder != nil {
		order, err := svc.Repo.GetOrder(ctx, *req.RelatedOrder)
		if err != nil {
			return nil, storeErr(err, "related order")
		}
		if !actor.IsStaff() && order.UserID != actor.ID {
			return nil, fmt.Errorf("%w: not your order", ErrForbidden)
		}
	}

	attachments := make([]models.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, models.Attachment{Filename: a.Filename, URL: a.URL, MimeType: a.MimeType, Size: a.Size})
	}
	m := &models.Message{
		SenderID:    actor.ID,
		RecipientID: req.Recipient,
		Subject:     strings.TrimSpace(req.Subject),
		Content:     strings.TrimSpace(req.Content),
		Type:        models.MessageType(req.Type),
		Priority:    models.MessagePriority(req.Priority),
		Attachments: attachments,
		OrderID:     req.RelatedOrder,
		ParentID:    req.ParentMessage,
	}
	if m.Type != "" && !m.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, req.Type)
	}
	if m.Priority != "" && !m.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, req.Priority)
	}
	if err := svc.Repo.CreateMessage(ctx, m); err != nil {
		return nil, storeErr(err, "message")
	}
	return m, nil
}

func (svc *MessageService) loadOwned(ctx context.Context, actor Actor, id uuid.UUID, owner func(*models.Message) uuid.UUID) (*models.Message, error) {
	m, err := svc.Repo.GetMessage(ctx, id)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	if owner(m) != actor.ID && !actor.IsStaff() {
		return nil, fmt.Errorf("%w: not allowed to change this message", ErrForbidden)
	}
	return m, nil
}

func sender(m *models.Message) uuid.UUID    { return m.SenderID }
func recipient(m *models.Message) uuid.UUID { return m.RecipientID }

func (svc *MessageService) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateMessageRequest) (*models.Message, error) {
	if _, err := svc.loadOwned(ctx, actor, id, sender); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Subject != nil {
		fields["subject"] = strings.TrimSpace(*req.Subject)
	}
	if req.Content != nil {
		fields["content"] = strings.TrimSpace(*req.Content)
	}
	if req.Type != nil {
		t := models.MessageType(*req.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, *req.Type)
		}
		fields["type"] = t
	}
	if req.Priority != nil {
		p := models.MessagePriority(*req.Priority)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *req.Priority)
		}
		fields["priority"] = p
	}
	if len(fields) == 0 {
		return svc.Repo.GetMessage(ctx, id)
	}
	m, err := svc.Repo.UpdateMessage(ctx, id, fields)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	return m, nil
}

func (svc *MessageService) Delete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Message, error) {
	m, err := svc.loadOwned(ctx, actor, id, sender)
	if err != nil {
		return nil, err
	}
	if err := svc.Repo.DeleteMessage(ctx, id); err != nil {
		return nil, storeErr(err, "message")
	}
	return m, nil
}

func (svc *MessageService) Archive(ctx context.Context, actor Actor, id uuid.UUID) (*models.Message, error) {
	if _, err := svc.loadOwned(ctx, actor, id, recipient); err != nil {
		return nil, err
	}
	m, err := svc.Repo.ArchiveMessage(ctx, id, nowFunc(svc.Now))
	if err != nil {
		return nil, storeErr(err, "message")
	}
	return m, nil
}
