package mapper

import (
	"time"

	"school-chat-be/internal/entity"
	"school-chat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:              s.Id,
		UserId:          s.UserId,
		UserName:        s.UserName,
		AdminId:         s.AdminId,
		AdminName:       s.AdminName,
		Status:          s.Status,
		LastMessage:     s.LastMessage,
		LastMessageTime: s.LastMessageTime,
		UnreadCount:     s.UnreadCount,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       updatedAt,
		ClosedAt:        s.ClosedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:              s.Id,
		UserId:          s.UserId,
		UserName:        s.UserName,
		AdminId:         s.AdminId,
		AdminName:       s.AdminName,
		Status:          s.Status,
		LastMessage:     s.LastMessage,
		LastMessageTime: s.LastMessageTime,
		UnreadCount:     s.UnreadCount,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       updatedAt,
		ClosedAt:        s.ClosedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatMessage{
		Id:         msg.Id,
		ChatId:     msg.ChatId,
		SenderId:   msg.SenderId,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		IsRead:     msg.IsRead,
		IsDeleted:  msg.IsDeleted,
		DeletedAt:  msg.DeletedAt,
		DeletedBy:  msg.DeletedBy,
		Attachment: attachmentToEntity(msg.Attachment),
		Metadata:   metadataToEntity(msg.Metadata),
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.ChatMessage{
		Id:         msg.Id,
		ChatId:     msg.ChatId,
		SenderId:   msg.SenderId,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		IsRead:     msg.IsRead,
		IsDeleted:  msg.IsDeleted,
		DeletedAt:  msg.DeletedAt,
		DeletedBy:  msg.DeletedBy,
		Attachment: attachmentToModel(msg.Attachment),
		Metadata:   metadataToModel(msg.Metadata),
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

// JSON column conversion

func attachmentToModel(a *entity.Attachment) datatypes.JSONMap {
	if a == nil {
		return nil
	}
	return datatypes.JSONMap{
		"url":  a.URL,
		"name": a.Name,
		"type": a.Type,
	}
}

func attachmentToEntity(raw datatypes.JSONMap) *entity.Attachment {
	if raw == nil {
		return nil
	}
	return &entity.Attachment{
		URL:  stringField(raw, "url"),
		Name: stringField(raw, "name"),
		Type: stringField(raw, "type"),
	}
}

func metadataToModel(md *entity.MessageMetadata) datatypes.JSONMap {
	if md == nil {
		return nil
	}
	return datatypes.JSONMap{
		"sentiment":  md.Sentiment,
		"intent":     md.Intent,
		"confidence": md.Confidence,
		"is_ai":      md.IsAI,
	}
}

func metadataToEntity(raw datatypes.JSONMap) *entity.MessageMetadata {
	if raw == nil {
		return nil
	}
	md := &entity.MessageMetadata{
		Sentiment: stringField(raw, "sentiment"),
		Intent:    stringField(raw, "intent"),
	}
	if v, ok := raw["confidence"].(float64); ok {
		md.Confidence = v
	}
	if v, ok := raw["is_ai"].(bool); ok {
		md.IsAI = v
	}
	return md
}

func stringField(raw datatypes.JSONMap, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
