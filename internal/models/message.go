package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStatus string

const (
	MessageUnread   MessageStatus = "unread"
	MessageRead     MessageStatus = "read"
	MessageArchived MessageStatus = "archived"
)

type MessageType string

const (
	MessageSupport MessageType = "support"
	MessageOrder   MessageType = "order"
	MessageGeneral MessageType = "general"
	MessageSystem  MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageSupport, MessageOrder, MessageGeneral, MessageSystem:
		return true
	}
	return false
}

type MessagePriority string

const (
	PriorityLow    MessagePriority = "low"
	PriorityMedium MessagePriority = "medium"
	PriorityHigh   MessagePriority = "high"
)

func (p MessagePriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mimetype,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type Message struct {
	ID          uuid.UUID       `gorm:"primaryKey"                      json:"id"`
	SenderID    uuid.UUID       `gorm:"index;not null"                  json:"sender"`
	RecipientID uuid.UUID       `gorm:"index;not null"                  json:"recipient"`
	Subject     string          `gorm:"size:200;not null"               json:"subject"`
	Content     string          `gorm:"size:5000;not null"              json:"content"`
	Status      MessageStatus   `gorm:"size:20;not null;index"          json:"status"`
	Type        MessageType     `gorm:"size:20;not null"                json:"type"`
	Priority    MessagePriority `gorm:"size:20;not null"                json:"priority"`
	Attachments []Attachment    `gorm:"type:text;serializer:json"       json:"attachments"`
	OrderID     *uuid.UUID      `gorm:"index"                           json:"relatedOrder,omitempty"`
	ParentID    *uuid.UUID      `gorm:"index"                           json:"parentMessage,omitempty"`
	Replies     []Message       `gorm:"foreignKey:ParentID"             json:"replies,omitempty"`
	ReadAt      *time.Time      `json:"readAt,omitempty"`
	ArchivedAt  *time.Time      `json:"archivedAt,omitempty"`
	CreatedAt   time.Time       `gorm:"index"                           json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MessageUnread
	}
	if m.Type == "" {
		m.Type = MessageGeneral
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	return nil
}

func (m *Message) Participant(userID uuid.UUID) bool {
	return m.SenderID == userID || m.RecipientID == userID
}
