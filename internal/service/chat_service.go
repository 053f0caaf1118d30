package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"school-chat-be/internal/apperror"
	"school-chat-be/internal/cache"
	"school-chat-be/internal/dto"
	"school-chat-be/internal/entity"
	"school-chat-be/internal/pkg/logger"
	"school-chat-be/internal/repository/specification"
	"school-chat-be/internal/repository/unitofwork"
	"school-chat-be/pkg/events"
	pktNats "school-chat-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxMessageLength = 1000

// recentContextSize is how many messages feed the responder's context.
const recentContextSize = 50

// AssistantId is the fixed sender identity for AI replies.
var AssistantId = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")

const AssistantName = "دستیار هوشمند مدرسه"

// ValidateMessageText trims and bounds chat text. Returned messages are in
// Persian because they are shown to site visitors directly.
func ValidateMessageText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", apperror.Validation("متن پیام نمی‌تواند خالی باشد")
	}
	if utf8.RuneCountInString(trimmed) > maxMessageLength {
		return "", apperror.Validation("متن پیام نمی‌تواند بیش از ۱۰۰۰ کاراکتر باشد")
	}
	return trimmed, nil
}

type IChatService interface {
	StartSession(ctx context.Context, userId uuid.UUID, userName string) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, senderId uuid.UUID, senderName string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	SendAssistantReply(ctx context.Context, chatId uuid.UUID, text string, meta *entity.MessageMetadata) (*dto.MessageResponse, error)
	GetHistory(ctx context.Context, chatId uuid.UUID, limit int, before *time.Time) ([]*dto.MessageResponse, error)
	RecentContext(ctx context.Context, chatId uuid.UUID) ([]*entity.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageId, deletedBy uuid.UUID) (*dto.MessageResponse, error)
	MarkMessageRead(ctx context.Context, messageId uuid.UUID) error
	MarkSessionRead(ctx context.Context, chatId, readerId uuid.UUID) error
	CloseSession(ctx context.Context, chatId, adminId uuid.UUID, adminName string) (*dto.SessionResponse, error)
	ReopenSession(ctx context.Context, chatId uuid.UUID) (*dto.SessionResponse, error)
	ListUserSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	ListOpenSessions(ctx context.Context) ([]*dto.SessionResponse, error)
	UnreadCount(ctx context.Context, userId uuid.UUID) (int64, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	convCache        *cache.ConversationCache
	publisher        *pktNats.Publisher
	logger           logger.ILogger
	publicUploadsURL string
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	convCache *cache.ConversationCache,
	publisher *pktNats.Publisher,
	log logger.ILogger,
	publicUploadsURL string,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		convCache:        convCache,
		publisher:        publisher,
		logger:           log,
		publicUploadsURL: publicUploadsURL,
	}
}

func (cs *chatService) StartSession(ctx context.Context, userId uuid.UUID, userName string) (*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	// First contact creates the session; later contacts reuse the open one.
	existing, err := repo.FindOne(ctx,
		specification.ByUserID{UserID: userId},
		specification.ByStatus{Status: entity.SessionStatusOpen},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Internal("failed to look up session", err)
	}
	if existing != nil {
		return sessionToDTO(existing), nil
	}

	session := &entity.ChatSession{
		UserId:      userId,
		UserName:    userName,
		Status:      entity.SessionStatusOpen,
		UnreadCount: 0,
	}
	if err := repo.Create(ctx, session); err != nil {
		return nil, apperror.Internal("failed to create session", err)
	}

	cs.publishEvent(events.NewSessionOpened(session.Id, userId, userName))
	return sessionToDTO(session), nil
}

func (cs *chatService) SendMessage(ctx context.Context, senderId uuid.UUID, senderName string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	text, err := ValidateMessageText(req.Text)
	if err != nil {
		return nil, err
	}

	message := &entity.ChatMessage{
		ChatId:     req.ChatId,
		SenderId:   senderId,
		SenderName: senderName,
		Text:       text,
		Attachment: cs.resolveAttachment(req.Attachment),
	}

	if err := cs.persistMessage(ctx, message); err != nil {
		return nil, err
	}
	return messageToDTO(message), nil
}

func (cs *chatService) SendAssistantReply(ctx context.Context, chatId uuid.UUID, text string, meta *entity.MessageMetadata) (*dto.MessageResponse, error) {
	trimmed, err := ValidateMessageText(text)
	if err != nil {
		return nil, err
	}

	if meta == nil {
		meta = &entity.MessageMetadata{}
	}
	meta.IsAI = true

	message := &entity.ChatMessage{
		ChatId:     chatId,
		SenderId:   AssistantId,
		SenderName: AssistantName,
		Text:       trimmed,
		Metadata:   meta,
	}

	if err := cs.persistMessage(ctx, message); err != nil {
		return nil, err
	}
	return messageToDTO(message), nil
}

// persistMessage stores the message and updates the owning session as one
// transaction; callers broadcast only after this returns so listeners never
// see a fresh message next to a stale unread count.
func (cs *chatService) persistMessage(ctx context.Context, message *entity.ChatMessage) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Internal("failed to start transaction", err)
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: message.ChatId})
	if err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to look up session", err)
	}
	if session == nil {
		_ = uow.Rollback()
		return apperror.NotFound("گفتگو یافت نشد")
	}

	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to store message", err)
	}

	sentAt := message.CreatedAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	if err := uow.ChatSessionRepository().RecordMessage(ctx, message.ChatId, message.Text, sentAt); err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to update session", err)
	}

	if err := uow.Commit(); err != nil {
		return apperror.Internal("failed to commit message", err)
	}

	cs.convCache.Append(message.ChatId, message)
	return nil
}

func (cs *chatService) GetHistory(ctx context.Context, chatId uuid.UUID, limit int, before *time.Time) ([]*dto.MessageResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Internal("failed to look up session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("گفتگو یافت نشد")
	}

	specs := []specification.Specification{
		specification.ByChatID{ChatID: chatId},
		specification.NotDeleted{},
		specification.RecentFirst{},
		specification.Limit{Limit: limit},
	}
	if before != nil {
		specs = append(specs, specification.CreatedBefore{Before: *before})
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Internal("failed to load history", err)
	}

	out := make([]*dto.MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = messageToDTO(m)
	}
	return out, nil
}

// RecentContext serves the responder: cached conversation context, rebuilt
// from storage on a miss.
func (cs *chatService) RecentContext(ctx context.Context, chatId uuid.UUID) ([]*entity.ChatMessage, error) {
	if cached, ok := cs.convCache.Get(chatId); ok {
		return cached, nil
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.NotDeleted{},
		specification.RecentFirst{},
		specification.Limit{Limit: recentContextSize},
	)
	if err != nil {
		return nil, apperror.Internal("failed to load context", err)
	}

	// Stored newest-first; context reads oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	cs.convCache.Put(chatId, messages)
	return messages, nil
}

func (cs *chatService) DeleteMessage(ctx context.Context, messageId, deletedBy uuid.UUID) (*dto.MessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatMessageRepository()

	message, err := repo.FindOne(ctx, specification.ByID{ID: messageId})
	if err != nil {
		return nil, apperror.Internal("failed to look up message", err)
	}
	if message == nil {
		return nil, apperror.NotFound("پیام یافت نشد")
	}

	// Re-deleting returns the same terminal record.
	if message.IsDeleted {
		return messageToDTO(message), nil
	}

	now := time.Now()
	message.IsDeleted = true
	message.DeletedAt = &now
	message.DeletedBy = &deletedBy

	if err := repo.Update(ctx, message); err != nil {
		return nil, apperror.Internal("failed to delete message", err)
	}

	cs.convCache.Invalidate(message.ChatId)
	cs.publishEvent(events.NewMessageDeleted(message.ChatId, messageId, deletedBy))
	return messageToDTO(message), nil
}

func (cs *chatService) MarkMessageRead(ctx context.Context, messageId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().MarkRead(ctx, messageId); err != nil {
		if isNotFound(err) {
			return apperror.NotFound("پیام یافت نشد")
		}
		return apperror.Internal("failed to mark message read", err)
	}
	return nil
}

func (cs *chatService) MarkSessionRead(ctx context.Context, chatId, readerId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Internal("failed to start transaction", err)
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to look up session", err)
	}
	if session == nil {
		_ = uow.Rollback()
		return apperror.NotFound("گفتگو یافت نشد")
	}

	if err := uow.ChatMessageRepository().MarkAllReadExceptSender(ctx, chatId, readerId); err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to mark messages read", err)
	}
	if err := uow.ChatSessionRepository().ResetUnread(ctx, chatId); err != nil {
		_ = uow.Rollback()
		return apperror.Internal("failed to reset unread counter", err)
	}

	if err := uow.Commit(); err != nil {
		return apperror.Internal("failed to commit read marking", err)
	}
	return nil
}

func (cs *chatService) CloseSession(ctx context.Context, chatId, adminId uuid.UUID, adminName string) (*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	session, err := repo.FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Internal("failed to look up session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("گفتگو یافت نشد")
	}

	// Closing an already-closed session re-asserts the fields instead of
	// erroring, so retried close clicks are harmless.
	now := time.Now()
	session.Status = entity.SessionStatusClosed
	session.AdminId = &adminId
	session.AdminName = &adminName
	session.ClosedAt = &now

	if err := repo.Update(ctx, session); err != nil {
		return nil, apperror.Internal("failed to close session", err)
	}

	cs.publishEvent(events.NewSessionClosed(chatId, adminId, adminName))
	return sessionToDTO(session), nil
}

func (cs *chatService) ReopenSession(ctx context.Context, chatId uuid.UUID) (*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	session, err := repo.FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Internal("failed to look up session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("گفتگو یافت نشد")
	}

	session.Status = entity.SessionStatusOpen
	session.AdminId = nil
	session.AdminName = nil
	session.ClosedAt = nil

	if err := repo.Update(ctx, session); err != nil {
		return nil, apperror.Internal("failed to reopen session", err)
	}

	cs.publishEvent(events.NewSessionReopened(chatId))
	return sessionToDTO(session), nil
}

func (cs *chatService) ListUserSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Internal("failed to list sessions", err)
	}
	return sessionsToDTO(sessions), nil
}

func (cs *chatService) ListOpenSessions(ctx context.Context) ([]*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByStatus{Status: entity.SessionStatusOpen},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Internal("failed to list open sessions", err)
	}
	return sessionsToDTO(sessions), nil
}

func (cs *chatService) UnreadCount(ctx context.Context, userId uuid.UUID) (int64, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.ChatSessionRepository().SumUnreadByUser(ctx, userId)
	if err != nil {
		return 0, apperror.Internal("failed to sum unread counts", err)
	}
	return count, nil
}

// resolveAttachment rewrites relative upload paths against the configured
// public base so stored URLs are always absolute.
func (cs *chatService) resolveAttachment(a *dto.AttachmentDTO) *entity.Attachment {
	if a == nil {
		return nil
	}
	url := a.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(cs.publicUploadsURL, "/") + "/" + strings.TrimLeft(url, "/")
	}
	return &entity.Attachment{
		URL:  url,
		Name: a.Name,
		Type: a.Type,
	}
}

func (cs *chatService) publishEvent(event events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cs.publisher.Publish(ctx, event); err != nil {
			cs.logger.Warn("ChatService", "Failed to publish chat event", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// DTO mapping

func sessionToDTO(s *entity.ChatSession) *dto.SessionResponse {
	return &dto.SessionResponse{
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
		UpdatedAt:       s.UpdatedAt,
		ClosedAt:        s.ClosedAt,
	}
}

func sessionsToDTO(sessions []*entity.ChatSession) []*dto.SessionResponse {
	out := make([]*dto.SessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = sessionToDTO(s)
	}
	return out
}

func messageToDTO(m *entity.ChatMessage) *dto.MessageResponse {
	resp := &dto.MessageResponse{
		Id:         m.Id,
		ChatId:     m.ChatId,
		SenderId:   m.SenderId,
		SenderName: m.SenderName,
		Text:       m.Text,
		IsRead:     m.IsRead,
		IsDeleted:  m.IsDeleted,
		DeletedAt:  m.DeletedAt,
		DeletedBy:  m.DeletedBy,
		CreatedAt:  m.CreatedAt,
	}
	if m.Attachment != nil {
		resp.Attachment = &dto.AttachmentDTO{
			URL:  m.Attachment.URL,
			Name: m.Attachment.Name,
			Type: m.Attachment.Type,
		}
	}
	if m.Metadata != nil {
		resp.Metadata = &dto.MessageMetadataDTO{
			Sentiment:  m.Metadata.Sentiment,
			Intent:     m.Metadata.Intent,
			Confidence: m.Metadata.Confidence,
			IsAI:       m.Metadata.IsAI,
		}
	}
	return resp
}
