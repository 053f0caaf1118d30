package mapper

import (
	"testing"
	"time"

	"school-chat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChatMessageRoundTrip(t *testing.T) {
	m := NewChatMapper()
	now := time.Now().Truncate(time.Second)
	deletedBy := uuid.New()

	original := &entity.ChatMessage{
		Id:         uuid.New(),
		ChatId:     uuid.New(),
		SenderId:   uuid.New(),
		SenderName: "زهرا",
		Text:       "سلام، برای ثبت‌نام چه مدارکی لازم است؟",
		IsRead:     true,
		IsDeleted:  true,
		DeletedAt:  &now,
		DeletedBy:  &deletedBy,
		Attachment: &entity.Attachment{
			URL:  "http://localhost:3000/uploads/chat/form.pdf",
			Name: "form.pdf",
			Type: "application/pdf",
		},
		Metadata: &entity.MessageMetadata{
			Sentiment:  "neutral",
			Intent:     "registration",
			Confidence: 0.9,
			IsAI:       false,
		},
		CreatedAt: now,
	}

	got := m.ChatMessageToEntity(m.ChatMessageToModel(original))

	assert.Equal(t, original.Id, got.Id)
	assert.Equal(t, original.Text, got.Text)
	assert.Equal(t, original.DeletedBy, got.DeletedBy)
	assert.Equal(t, original.Attachment, got.Attachment)
	assert.Equal(t, original.Metadata, got.Metadata)
}

func TestChatMessageNilJSONColumns(t *testing.T) {
	m := NewChatMapper()

	model := m.ChatMessageToModel(&entity.ChatMessage{Id: uuid.New(), Text: "بدون پیوست"})
	assert.Nil(t, model.Attachment)
	assert.Nil(t, model.Metadata)

	got := m.ChatMessageToEntity(model)
	assert.Nil(t, got.Attachment)
	assert.Nil(t, got.Metadata)
}

func TestChatSessionRoundTrip(t *testing.T) {
	m := NewChatMapper()
	now := time.Now().Truncate(time.Second)
	adminId := uuid.New()
	adminName := "خانم احمدی"

	original := &entity.ChatSession{
		Id:              uuid.New(),
		UserId:          uuid.New(),
		UserName:        "زهرا",
		AdminId:         &adminId,
		AdminName:       &adminName,
		Status:          entity.SessionStatusClosed,
		LastMessage:     "متشکرم",
		LastMessageTime: &now,
		UnreadCount:     3,
		CreatedAt:       now,
		ClosedAt:        &now,
	}

	got := m.ChatSessionToEntity(m.ChatSessionToModel(original))

	assert.Equal(t, original.Id, got.Id)
	assert.Equal(t, original.Status, got.Status)
	assert.Equal(t, original.AdminId, got.AdminId)
	assert.Equal(t, original.AdminName, got.AdminName)
	assert.Equal(t, original.UnreadCount, got.UnreadCount)
	assert.Equal(t, original.ClosedAt, got.ClosedAt)
	assert.False(t, got.IsOpen())
}
