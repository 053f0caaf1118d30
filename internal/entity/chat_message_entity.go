package entity

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is an optional file reference carried by a message. URL is
// always absolute once persisted.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// MessageMetadata holds best-effort classification results. All fields are
// optional enrichment; absence never affects delivery.
type MessageMetadata struct {
	Sentiment  string  `json:"sentiment,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsAI       bool    `json:"is_ai,omitempty"`
}

type ChatMessage struct {
	Id         uuid.UUID
	ChatId     uuid.UUID
	SenderId   uuid.UUID
	SenderName string
	Text       string
	IsRead     bool
	IsDeleted  bool
	DeletedAt  *time.Time
	DeletedBy  *uuid.UUID
	Attachment *Attachment
	Metadata   *MessageMetadata
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
