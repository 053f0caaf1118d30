package service

import (
	"context"
	"encoding/json"

	"school-chat-be/internal/entity"
	"school-chat-be/internal/pkg/logger"
	"school-chat-be/internal/repository/specification"
	"school-chat-be/internal/repository/unitofwork"
	"school-chat-be/pkg/responder"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IEnrichmentConsumer interface {
	Consume(ctx context.Context) error
}

// enrichmentConsumer analyzes stored messages off the request path and
// writes sentiment/intent metadata back onto them.
type enrichmentConsumer struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	generator  *responder.Generator
	logger     logger.ILogger
}

func NewEnrichmentConsumer(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	generator *responder.Generator,
	log logger.ILogger,
) IEnrichmentConsumer {
	return &enrichmentConsumer{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		generator:  generator,
		logger:     log,
	}
}

func (ec *enrichmentConsumer) Consume(ctx context.Context) error {
	messages, err := ec.pubSub.Subscribe(ctx, ec.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ec.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ec *enrichmentConsumer) processMessage(ctx context.Context, msg *message.Message) {
	var payload EnrichmentPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ec.logger.Error("EnrichmentConsumer", "Failed to unmarshal payload", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Malformed payloads never become valid on retry.
		return
	}

	uow := ec.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatMessageRepository()

	chatMessage, err := repo.FindOne(ctx, specification.ByID{ID: payload.MessageId})
	if err != nil {
		ec.logger.Error("EnrichmentConsumer", "Failed to load message", map[string]interface{}{
			"message_id": payload.MessageId.String(),
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	if chatMessage == nil || chatMessage.IsDeleted {
		msg.Ack() // Deleted before we got to it.
		return
	}

	sentiment := ec.generator.AnalyzeSentiment(ctx, chatMessage.Text)
	intent := ec.generator.DetectIntent(ctx, chatMessage.Text)

	metadata := &entity.MessageMetadata{
		Sentiment:  sentiment,
		Intent:     intent.Intent,
		Confidence: intent.Confidence,
	}
	if chatMessage.Metadata != nil {
		metadata.IsAI = chatMessage.Metadata.IsAI
	}

	if err := repo.UpdateMetadata(ctx, payload.MessageId, metadata); err != nil {
		ec.logger.Error("EnrichmentConsumer", "Failed to store metadata", map[string]interface{}{
			"message_id": payload.MessageId.String(),
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	ec.logger.Info("EnrichmentConsumer", "Message enriched", map[string]interface{}{
		"message_id": payload.MessageId.String(),
		"sentiment":  sentiment,
		"intent":     intent.Intent,
	})
	msg.Ack()
}
