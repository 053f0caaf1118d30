package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

// ChatSession is a support conversation between a site visitor and an
// optional admin. Admin fields and ClosedAt are only populated while the
// session is closed; Reopen clears them.
type ChatSession struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	UserName        string
	AdminId         *uuid.UUID
	AdminName       *string
	Status          string
	LastMessage     string
	LastMessageTime *time.Time
	UnreadCount     int
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	ClosedAt        *time.Time
}

func (s *ChatSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}
