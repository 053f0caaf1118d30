package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatMessage rows are never hard-deleted; IsDeleted marks a soft delete and
// active-history queries filter on it. gorm's DeletedAt scope is not used so
// that deleted rows stay reachable for idempotent re-delete reads.
type ChatMessage struct {
	Id         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId     uuid.UUID         `gorm:"type:uuid;not null;index:idx_chat_messages_chat_created,priority:1"`
	SenderId   uuid.UUID         `gorm:"type:uuid;not null"`
	SenderName string            `gorm:"type:varchar(255);not null"`
	Text       string            `gorm:"type:text;not null"`
	IsRead     bool              `gorm:"not null;default:false"`
	IsDeleted  bool              `gorm:"not null;default:false"`
	DeletedAt  *time.Time
	DeletedBy  *uuid.UUID        `gorm:"type:uuid"`
	Attachment datatypes.JSONMap `gorm:"type:jsonb"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index:idx_chat_messages_chat_created,priority:2,sort:desc"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
