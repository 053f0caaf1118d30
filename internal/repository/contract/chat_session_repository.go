package contract

import (
	"context"
	"time"

	"school-chat-be/internal/entity"
	"school-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// RecordMessage sets last_message/last_message_time and bumps
	// unread_count with a single SQL increment expression so concurrent
	// sends to the same session never lose counts.
	RecordMessage(ctx context.Context, id uuid.UUID, lastMessage string, at time.Time) error

	// ResetUnread zeroes the unread counter.
	ResetUnread(ctx context.Context, id uuid.UUID) error

	// SumUnreadByUser totals unread counts across a user's sessions.
	SumUnreadByUser(ctx context.Context, userId uuid.UUID) (int64, error)
}
