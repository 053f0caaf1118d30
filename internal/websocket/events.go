package websocket

import (
	"encoding/json"

	"school-chat-be/internal/dto"

	"github.com/google/uuid"
)

// Inbound event types sent by browsers.
const (
	EventJoinChat      = "joinChat"
	EventLeaveChat     = "leaveChat"
	EventSendMessage   = "sendMessage"
	EventMarkAsRead    = "markAsRead"
	EventCloseChat     = "closeChat"
	EventReopenChat    = "reopenChat"
	EventDeleteMessage = "deleteMessage"
	EventTyping        = "typing"
)

// Outbound event types pushed to browsers.
const (
	EventHistory        = "history"
	EventNewMessage     = "newMessage"
	EventMessagesRead   = "messagesRead"
	EventChatClosed     = "chatClosed"
	EventChatReopened   = "chatReopened"
	EventMessageDeleted = "messageDeleted"
	EventError          = "error"
)

type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type OutboundEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ChatPayload struct {
	ChatId uuid.UUID `json:"chat_id"`
}

type SendMessagePayload struct {
	ChatId     uuid.UUID          `json:"chat_id"`
	Text       string             `json:"text"`
	Attachment *dto.AttachmentDTO `json:"attachment,omitempty"`
}

type CloseChatPayload struct {
	ChatId uuid.UUID `json:"chat_id"`
}

type DeleteMessagePayload struct {
	MessageId uuid.UUID `json:"message_id"`
}

type TypingPayload struct {
	ChatId   uuid.UUID `json:"chat_id"`
	UserId   uuid.UUID `json:"user_id,omitempty"`
	UserName string    `json:"user_name,omitempty"`
	IsTyping bool      `json:"is_typing"`
}

type HistoryPayload struct {
	ChatId   uuid.UUID              `json:"chat_id"`
	Messages []*dto.MessageResponse `json:"messages"`
}

type MessagesReadPayload struct {
	ChatId   uuid.UUID `json:"chat_id"`
	ReaderId uuid.UUID `json:"reader_id"`
}

type MessageDeletedPayload struct {
	ChatId    uuid.UUID `json:"chat_id"`
	MessageId uuid.UUID `json:"message_id"`
}

type ErrorPayload struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
