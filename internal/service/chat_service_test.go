package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"school-chat-be/internal/apperror"
	"school-chat-be/internal/cache"
	"school-chat-be/internal/config"
	"school-chat-be/internal/dto"
	"school-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestChatService(t *testing.T) (IChatService, *fakeFactory, *cache.ConversationCache) {
	t.Helper()
	factory := newFakeFactory()
	convCache := cache.NewConversationCacheWithClock(config.CacheConfig{
		TTL:               30 * time.Minute,
		SweepInterval:     time.Minute,
		MaxEntries:        100,
		HighWatermark:     0.80,
		CriticalWatermark: 0.90,
	}, logger.NewNopLogger(), time.Now)

	svc := NewChatService(factory, convCache, nil, logger.NewNopLogger(), "http://localhost:3000/uploads")
	return svc, factory, convCache
}

func TestValidateMessageText(t *testing.T) {
	t.Run("trims surrounding space", func(t *testing.T) {
		got, err := ValidateMessageText("  سلام  ")
		assert.NoError(t, err)
		assert.Equal(t, "سلام", got)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ValidateMessageText("   ")
		appErr, ok := apperror.As(err)
		assert.True(t, ok)
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
	})

	t.Run("accepts exactly 1000 runes", func(t *testing.T) {
		_, err := ValidateMessageText(strings.Repeat("م", 1000))
		assert.NoError(t, err)
	})

	t.Run("rejects 1001 runes", func(t *testing.T) {
		_, err := ValidateMessageText(strings.Repeat("م", 1001))
		appErr, ok := apperror.As(err)
		assert.True(t, ok)
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
	})
}

func TestStartSessionCreatesThenReuses(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()

	first, err := svc.StartSession(ctx, userId, "زهرا")
	assert.NoError(t, err)
	assert.Equal(t, "open", first.Status)
	assert.Equal(t, 0, first.UnreadCount)

	second, err := svc.StartSession(ctx, userId, "زهرا")
	assert.NoError(t, err)
	assert.Equal(t, first.Id, second.Id, "second contact should reuse the open session")
}

func TestSendMessageUpdatesSession(t *testing.T) {
	svc, factory, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()

	session, err := svc.StartSession(ctx, userId, "زهرا")
	assert.NoError(t, err)

	msg, err := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{
		ChatId: session.Id,
		Text:   "  سلام  ",
	})
	assert.NoError(t, err)
	assert.Equal(t, "سلام", msg.Text)
	assert.False(t, msg.IsRead)

	stored := factory.uow.sessions.sessions[session.Id]
	assert.Equal(t, "سلام", stored.LastMessage)
	assert.Equal(t, 1, stored.UnreadCount)
	assert.NotNil(t, stored.LastMessageTime)

	_, err = svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{
		ChatId: session.Id,
		Text:   "پیام دوم",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, factory.uow.sessions.sessions[session.Id].UnreadCount)
}

func TestSendMessageUnknownSession(t *testing.T) {
	svc, _, _ := newTestChatService(t)

	_, err := svc.SendMessage(context.Background(), uuid.New(), "کسی", &dto.SendMessageRequest{
		ChatId: uuid.New(),
		Text:   "سلام",
	})
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
}

func TestMarkMessageRead(t *testing.T) {
	svc, factory, _ := newTestChatService(t)
	ctx := context.Background()

	visitor := uuid.New()
	session, _ := svc.StartSession(ctx, visitor, "زهرا")
	stored, err := svc.SendMessage(ctx, visitor, "زهرا", &dto.SendMessageRequest{
		ChatId: session.Id,
		Text:   "سلام",
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.MarkMessageRead(ctx, stored.Id))
	assert.True(t, factory.uow.messages.get(stored.Id).IsRead)
}

func TestMarkMessageReadUnknownMessage(t *testing.T) {
	svc, _, _ := newTestChatService(t)

	err := svc.MarkMessageRead(context.Background(), uuid.New())
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
}

func TestSendMessageResolvesRelativeAttachment(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()
	session, _ := svc.StartSession(ctx, userId, "زهرا")

	msg, err := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{
		ChatId:     session.Id,
		Text:       "فایل پیوست",
		Attachment: &dto.AttachmentDTO{URL: "/chat/form.pdf", Name: "form.pdf", Type: "application/pdf"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/uploads/chat/form.pdf", msg.Attachment.URL)

	absolute, err := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{
		ChatId:     session.Id,
		Text:       "لینک کامل",
		Attachment: &dto.AttachmentDTO{URL: "https://cdn.example.com/a.png"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", absolute.Attachment.URL)
}

func TestSendAssistantReplyMarksAI(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	session, _ := svc.StartSession(ctx, uuid.New(), "زهرا")

	reply, err := svc.SendAssistantReply(ctx, session.Id, "پاسخ خودکار", nil)
	assert.NoError(t, err)
	assert.Equal(t, AssistantId, reply.SenderId)
	assert.Equal(t, AssistantName, reply.SenderName)
	assert.NotNil(t, reply.Metadata)
	assert.True(t, reply.Metadata.IsAI)
}

func TestGetHistoryOrderingCursorAndSoftDeletes(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()
	session, _ := svc.StartSession(ctx, userId, "زهرا")

	var ids []uuid.UUID
	for _, text := range []string{"اول", "دوم", "سوم", "چهارم"} {
		m, err := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: text})
		assert.NoError(t, err)
		ids = append(ids, m.Id)
	}

	history, err := svc.GetHistory(ctx, session.Id, 10, nil)
	assert.NoError(t, err)
	assert.Len(t, history, 4)
	assert.Equal(t, "چهارم", history[0].Text, "newest first")

	// Cursor: strictly older than the second-newest message.
	cursor := history[1].CreatedAt
	page, err := svc.GetHistory(ctx, session.Id, 10, &cursor)
	assert.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, "دوم", page[0].Text)

	// Soft-deleted messages disappear from history.
	_, err = svc.DeleteMessage(ctx, ids[3], userId)
	assert.NoError(t, err)
	history, err = svc.GetHistory(ctx, session.Id, 10, nil)
	assert.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, "سوم", history[0].Text)
}

func TestGetHistoryUnknownSession(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	_, err := svc.GetHistory(context.Background(), uuid.New(), 10, nil)
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
}

func TestDeleteMessageIsIdempotent(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()
	admin := uuid.New()
	session, _ := svc.StartSession(ctx, userId, "زهرا")
	msg, _ := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: "حذف شود"})

	first, err := svc.DeleteMessage(ctx, msg.Id, admin)
	assert.NoError(t, err)
	assert.True(t, first.IsDeleted)
	assert.NotNil(t, first.DeletedAt)
	assert.Equal(t, admin, *first.DeletedBy)

	second, err := svc.DeleteMessage(ctx, msg.Id, uuid.New())
	assert.NoError(t, err, "re-delete must not error")
	assert.True(t, second.IsDeleted)
	assert.Equal(t, admin, *second.DeletedBy, "original delete audit fields kept")
	assert.Equal(t, first.DeletedAt.Unix(), second.DeletedAt.Unix())
}

func TestDeleteMessageUnknown(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	_, err := svc.DeleteMessage(context.Background(), uuid.New(), uuid.New())
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
}

func TestDeleteMessageInvalidatesCachedContext(t *testing.T) {
	svc, _, convCache := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()
	session, _ := svc.StartSession(ctx, userId, "زهرا")
	msg, _ := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: "متن"})

	_, err := svc.RecentContext(ctx, session.Id)
	assert.NoError(t, err)
	_, cached := convCache.Get(session.Id)
	assert.True(t, cached)

	_, err = svc.DeleteMessage(ctx, msg.Id, userId)
	assert.NoError(t, err)
	_, cached = convCache.Get(session.Id)
	assert.False(t, cached, "delete must drop the cached context")
}

func TestRecentContextCachesAndIsOldestFirst(t *testing.T) {
	svc, _, convCache := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()
	session, _ := svc.StartSession(ctx, userId, "زهرا")
	convCache.Invalidate(session.Id)

	for _, text := range []string{"اول", "دوم", "سوم"} {
		_, err := svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: text})
		assert.NoError(t, err)
	}
	convCache.Invalidate(session.Id) // force the rebuild path

	recent, err := svc.RecentContext(ctx, session.Id)
	assert.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, "اول", recent[0].Text)
	assert.Equal(t, "سوم", recent[2].Text)

	_, cached := convCache.Get(session.Id)
	assert.True(t, cached, "rebuild should populate the cache")
}

func TestMarkSessionRead(t *testing.T) {
	svc, factory, _ := newTestChatService(t)
	ctx := context.Background()
	visitor := uuid.New()
	admin := uuid.New()
	session, _ := svc.StartSession(ctx, visitor, "زهرا")

	svc.SendMessage(ctx, visitor, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: "سوال"})
	adminMsg, _ := svc.SendMessage(ctx, admin, "مدیر", &dto.SendMessageRequest{ChatId: session.Id, Text: "جواب"})

	err := svc.MarkSessionRead(ctx, session.Id, admin)
	assert.NoError(t, err)

	assert.Equal(t, 0, factory.uow.sessions.sessions[session.Id].UnreadCount)
	for _, m := range factory.uow.messages.messages {
		if m.Id == adminMsg.Id {
			assert.False(t, m.IsRead, "reader's own messages stay untouched")
		} else {
			assert.True(t, m.IsRead)
		}
	}
}

func TestCloseSessionIsIdempotent(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	session, _ := svc.StartSession(ctx, uuid.New(), "زهرا")
	admin := uuid.New()

	closed, err := svc.CloseSession(ctx, session.Id, admin, "خانم احمدی")
	assert.NoError(t, err)
	assert.Equal(t, "closed", closed.Status)
	assert.Equal(t, admin, *closed.AdminId)
	assert.Equal(t, "خانم احمدی", *closed.AdminName)
	assert.NotNil(t, closed.ClosedAt)

	again, err := svc.CloseSession(ctx, session.Id, admin, "خانم احمدی")
	assert.NoError(t, err, "re-close must not error")
	assert.Equal(t, "closed", again.Status)
	assert.Equal(t, admin, *again.AdminId)
}

func TestReopenSessionClearsAdminFields(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	session, _ := svc.StartSession(ctx, uuid.New(), "زهرا")
	svc.CloseSession(ctx, session.Id, uuid.New(), "مدیر")

	reopened, err := svc.ReopenSession(ctx, session.Id)
	assert.NoError(t, err)
	assert.Equal(t, "open", reopened.Status)
	assert.Nil(t, reopened.AdminId)
	assert.Nil(t, reopened.AdminName)
	assert.Nil(t, reopened.ClosedAt)
}

func TestUnreadCountSumsAcrossSessions(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	ctx := context.Background()
	userId := uuid.New()

	session, _ := svc.StartSession(ctx, userId, "زهرا")
	svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: "یک"})
	svc.SendMessage(ctx, userId, "زهرا", &dto.SendMessageRequest{ChatId: session.Id, Text: "دو"})

	count, err := svc.UnreadCount(ctx, userId)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	other, err := svc.UnreadCount(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), other)
}
