package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	UserName string `json:"user_name" validate:"required,max=255"`
}

type SessionResponse struct {
	Id              uuid.UUID  `json:"id"`
	UserId          uuid.UUID  `json:"user_id"`
	UserName        string     `json:"user_name"`
	AdminId         *uuid.UUID `json:"admin_id,omitempty"`
	AdminName       *string    `json:"admin_name,omitempty"`
	Status          string     `json:"status"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

type AttachmentDTO struct {
	URL  string `json:"url" validate:"required"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SendMessageRequest struct {
	ChatId     uuid.UUID      `json:"chat_id" validate:"required"`
	Text       string         `json:"text" validate:"required"`
	Attachment *AttachmentDTO `json:"attachment,omitempty"`
}

type MessageMetadataDTO struct {
	Sentiment  string  `json:"sentiment,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsAI       bool    `json:"is_ai,omitempty"`
}

type MessageResponse struct {
	Id         uuid.UUID           `json:"id"`
	ChatId     uuid.UUID           `json:"chat_id"`
	SenderId   uuid.UUID           `json:"sender_id"`
	SenderName string              `json:"sender_name"`
	Text       string              `json:"text"`
	IsRead     bool                `json:"is_read"`
	IsDeleted  bool                `json:"is_deleted"`
	DeletedAt  *time.Time          `json:"deleted_at,omitempty"`
	DeletedBy  *uuid.UUID          `json:"deleted_by,omitempty"`
	Attachment *AttachmentDTO      `json:"attachment,omitempty"`
	Metadata   *MessageMetadataDTO `json:"metadata,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

type CloseSessionRequest struct {
	AdminName string `json:"admin_name" validate:"required,max=255"`
}

type ProcessMessageRequest struct {
	ChatId *uuid.UUID `json:"chat_id,omitempty"`
	Text   string     `json:"text" validate:"required"`
}

type ProcessMessageResponse struct {
	Reply      string  `json:"reply"`
	Sentiment  string  `json:"sentiment"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	IsAI       bool    `json:"is_ai"`
}

type LearnMessageRequest struct {
	ChatId     uuid.UUID `json:"chat_id" validate:"required"`
	SenderId   uuid.UUID `json:"sender_id" validate:"required"`
	SenderName string    `json:"sender_name" validate:"required"`
	Text       string    `json:"text" validate:"required"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
