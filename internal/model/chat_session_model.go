package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserName        string     `gorm:"type:varchar(255);not null"`
	AdminId         *uuid.UUID `gorm:"type:uuid"`
	AdminName       *string    `gorm:"type:varchar(255)"`
	Status          string     `gorm:"type:varchar(20);not null;default:'open';index"`
	LastMessage     string     `gorm:"type:text"`
	LastMessageTime *time.Time
	UnreadCount     int       `gorm:"not null;default:0"`
	ClosedAt        *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime;index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
