package events

import (
	"time"

	"github.com/google/uuid"
)

// Chat lifecycle events published for the rest of the school platform
// (notifications, admin dashboard). Best-effort: chat never blocks on them.
const (
	TypeSessionOpened   = "CHAT_SESSION_OPENED"
	TypeSessionClosed   = "CHAT_SESSION_CLOSED"
	TypeSessionReopened = "CHAT_SESSION_REOPENED"
	TypeMessageDeleted  = "CHAT_MESSAGE_DELETED"
)

func NewSessionOpened(chatId, userId uuid.UUID, userName string) Event {
	return BaseEvent{
		Type: TypeSessionOpened,
		Data: map[string]interface{}{
			"chat_id":   chatId.String(),
			"user_id":   userId.String(),
			"user_name": userName,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionClosed(chatId, adminId uuid.UUID, adminName string) Event {
	return BaseEvent{
		Type: TypeSessionClosed,
		Data: map[string]interface{}{
			"chat_id":    chatId.String(),
			"admin_id":   adminId.String(),
			"admin_name": adminName,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionReopened(chatId uuid.UUID) Event {
	return BaseEvent{
		Type: TypeSessionReopened,
		Data: map[string]interface{}{
			"chat_id": chatId.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewMessageDeleted(chatId, messageId, deletedBy uuid.UUID) Event {
	return BaseEvent{
		Type: TypeMessageDeleted,
		Data: map[string]interface{}{
			"chat_id":    chatId.String(),
			"message_id": messageId.String(),
			"deleted_by": deletedBy.String(),
		},
		OccurredAt: time.Now(),
	}
}
