package transport

import "github.com/google/uuid"

type AttachmentRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	URL      string `json:"url"      validate:"required,url,max=1000"`
	MimeType string `json:"mimetype" validate:"max=100"`
	Size     int64  `json:"size"     validate:"min=0"`
}

type CreateMessageRequest struct {
	Recipient     uuid.UUID           `json:"recipient"     validate:"required"`
	Subject       string              `json:"subject"       validate:"required,max=200"`
	Content       string              `json:"content"       validate:"required,max=5000"`
	Type          string              `json:"type"          validate:"omitempty,oneof=support order general system"`
	Priority      string              `json:"priority"      validate:"omitempty,oneof=low medium high"`
	Attachments   []AttachmentRequest `json:"attachments"   validate:"omitempty,dive"`
	RelatedOrder  *uuid.UUID          `json:"relatedOrder"`
	ParentMessage *uuid.UUID          `json:"parentMessage"`
}

type UpdateMessageRequest struct {
	Subject  *string `json:"subject"  validate:"omitempty,max=200"`
	Content  *string `json:"content"  validate:"omitempty,max=5000"`
	Type     *string `json:"type"     validate:"omitempty,oneof=support order general system"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type MessageQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Status string `query:"status" validate:"omitempty,oneof=unread read archived"`
	Type   string `query:"type"   validate:"omitempty,oneof=support order general system"`
	Sort   string `query:"sort"`
}
