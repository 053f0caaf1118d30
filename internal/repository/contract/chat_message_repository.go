package contract

import (
	"context"

	"school-chat-be/internal/entity"
	"school-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	Update(ctx context.Context, message *entity.ChatMessage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// MarkRead flags a single message as read.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllReadExceptSender bulk-marks every unread message in the chat
	// that was not authored by readerId.
	MarkAllReadExceptSender(ctx context.Context, chatId, readerId uuid.UUID) error

	// UpdateMetadata replaces the metadata JSON of a message.
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata *entity.MessageMetadata) error
}
