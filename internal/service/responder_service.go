package service

import (
	"context"
	"encoding/json"

	"school-chat-be/internal/dto"
	"school-chat-be/internal/entity"
	"school-chat-be/internal/pkg/logger"
	"school-chat-be/pkg/inference"
	"school-chat-be/pkg/responder"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EnrichmentTopic carries message ids whose metadata should be analyzed
// off the request path.
const EnrichmentTopic = "chat.message.enrich"

type EnrichmentPayload struct {
	MessageId uuid.UUID `json:"message_id"`
}

type IResponderService interface {
	ProcessMessage(ctx context.Context, req *dto.ProcessMessageRequest) (*dto.ProcessMessageResponse, error)
	GenerateSuggestions(ctx context.Context, text string) (*dto.SuggestionsResponse, error)
	LearnFromConversation(ctx context.Context, req *dto.LearnMessageRequest) (*dto.MessageResponse, error)
	EnqueueEnrichment(messageId uuid.UUID)
}

type responderService struct {
	chatService IChatService
	generator   *responder.Generator
	publisher   message.Publisher
	logger      logger.ILogger
}

func NewResponderService(
	chatService IChatService,
	generator *responder.Generator,
	publisher message.Publisher,
	log logger.ILogger,
) IResponderService {
	return &responderService{
		chatService: chatService,
		generator:   generator,
		publisher:   publisher,
		logger:      log,
	}
}

// ProcessMessage produces an assistant reply for the visitor's text. The
// generator absorbs every inference failure, so this only errors on invalid
// input or a broken context load.
func (rs *responderService) ProcessMessage(ctx context.Context, req *dto.ProcessMessageRequest) (*dto.ProcessMessageResponse, error) {
	text, err := ValidateMessageText(req.Text)
	if err != nil {
		return nil, err
	}

	// Context load, reply, sentiment and intent all run inside one budget;
	// a slow reply leaves less, not more, for classification.
	ctx, cancel := context.WithTimeout(ctx, responder.OuterBudget)
	defer cancel()

	var history []inference.Message
	if req.ChatId != nil {
		recent, err := rs.chatService.RecentContext(ctx, *req.ChatId)
		if err != nil {
			return nil, err
		}
		history = historyToMessages(recent)
	}

	reply, fromModel := rs.generator.ProcessMessage(ctx, history, text)
	sentiment := rs.generator.AnalyzeSentiment(ctx, text)
	intent := rs.generator.DetectIntent(ctx, text)

	return &dto.ProcessMessageResponse{
		Reply:      reply,
		Sentiment:  sentiment,
		Intent:     intent.Intent,
		Confidence: intent.Confidence,
		IsAI:       fromModel,
	}, nil
}

func (rs *responderService) GenerateSuggestions(ctx context.Context, text string) (*dto.SuggestionsResponse, error) {
	intent := rs.generator.DetectIntent(ctx, text)
	suggestions := rs.generator.GenerateSuggestions(text, intent.Intent)
	return &dto.SuggestionsResponse{Suggestions: suggestions}, nil
}

// LearnFromConversation stores an admin's answer as a normal message and
// queues it for metadata enrichment, so future context windows include it.
func (rs *responderService) LearnFromConversation(ctx context.Context, req *dto.LearnMessageRequest) (*dto.MessageResponse, error) {
	stored, err := rs.chatService.SendMessage(ctx, req.SenderId, req.SenderName, &dto.SendMessageRequest{
		ChatId: req.ChatId,
		Text:   req.Text,
	})
	if err != nil {
		return nil, err
	}

	rs.EnqueueEnrichment(stored.Id)
	return stored, nil
}

func (rs *responderService) EnqueueEnrichment(messageId uuid.UUID) {
	payload, err := json.Marshal(EnrichmentPayload{MessageId: messageId})
	if err != nil {
		rs.logger.Error("ResponderService", "Failed to encode enrichment payload", map[string]interface{}{
			"message_id": messageId.String(),
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := rs.publisher.Publish(EnrichmentTopic, msg); err != nil {
		rs.logger.Warn("ResponderService", "Failed to enqueue enrichment", map[string]interface{}{
			"message_id": messageId.String(),
			"error":      err.Error(),
		})
	}
}

func historyToMessages(recent []*entity.ChatMessage) []inference.Message {
	out := make([]inference.Message, 0, len(recent))
	for _, m := range recent {
		role := "user"
		if m.SenderId == AssistantId || (m.Metadata != nil && m.Metadata.IsAI) {
			role = "assistant"
		}
		out = append(out, inference.Message{Role: role, Content: m.Text})
	}
	return out
}
