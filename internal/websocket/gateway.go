package websocket

import (
	"context"
	"encoding/json"
	"time"

	"school-chat-be/internal/apperror"
	"school-chat-be/internal/dto"
	"school-chat-be/internal/pkg/logger"
	"school-chat-be/internal/ratelimit"
	"school-chat-be/internal/repository/memory"
	"school-chat-be/internal/service"

	"github.com/google/uuid"
)

const dispatchTimeout = 15 * time.Second

// Gateway dispatches inbound websocket events to the chat services and
// fans results back out through the hub. Every handler persists before it
// broadcasts, and failures only ever reach the originating connection.
type Gateway struct {
	hub            *Hub
	chatService    service.IChatService
	responder      service.IResponderService
	presence       *memory.PresenceRepository
	sendLimiter    *ratelimit.Limiter
	historyLimiter *ratelimit.Limiter
	logger         logger.ILogger
}

func NewGateway(
	hub *Hub,
	chatService service.IChatService,
	responder service.IResponderService,
	presence *memory.PresenceRepository,
	sendLimiter *ratelimit.Limiter,
	historyLimiter *ratelimit.Limiter,
	log logger.ILogger,
) *Gateway {
	return &Gateway{
		hub:            hub,
		chatService:    chatService,
		responder:      responder,
		presence:       presence,
		sendLimiter:    sendLimiter,
		historyLimiter: historyLimiter,
		logger:         log,
	}
}

func (g *Gateway) Connected(client *Client) {
	g.presence.Save(client.ConnId, &memory.Presence{
		UserId:   client.UserId,
		UserName: client.UserName,
		IsAdmin:  client.IsAdmin,
		JoinedAt: time.Now(),
	})
}

func (g *Gateway) Disconnected(client *Client) {
	g.presence.Delete(client.ConnId)
}

func (g *Gateway) Dispatch(client *Client, raw []byte) {
	var event InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		g.sendError(client, "فرمت رویداد نامعتبر است", 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	switch event.Type {
	case EventJoinChat:
		g.handleJoin(ctx, client, event.Payload)
	case EventLeaveChat:
		g.handleLeave(client, event.Payload)
	case EventSendMessage:
		g.handleSendMessage(ctx, client, event.Payload)
	case EventMarkAsRead:
		g.handleMarkAsRead(ctx, client, event.Payload)
	case EventCloseChat:
		g.handleClose(ctx, client, event.Payload)
	case EventReopenChat:
		g.handleReopen(ctx, client, event.Payload)
	case EventDeleteMessage:
		g.handleDelete(ctx, client, event.Payload)
	case EventTyping:
		g.handleTyping(client, event.Payload)
	default:
		g.sendError(client, "رویداد پشتیبانی نمی‌شود", 0)
	}
}

func (g *Gateway) handleJoin(ctx context.Context, client *Client, payload json.RawMessage) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه گفتگو نامعتبر است", 0)
		return
	}

	// Joining replays history, so it counts against the daily read budget.
	result := g.historyLimiter.Check(ratelimit.Key(client.UserId.String(), "history"))
	if !result.Allowed {
		g.sendError(client, result.Message, result.RetryAfter)
		return
	}

	history, err := g.chatService.GetHistory(ctx, p.ChatId, 50, nil)
	if err != nil {
		g.sendServiceError(client, err)
		return
	}

	g.hub.Join(p.ChatId, client)
	if presence, ok := g.presence.Get(client.ConnId); ok {
		presence.ChatId = p.ChatId
		g.presence.Save(client.ConnId, presence)
	}
	g.hub.SendTo(client, OutboundEvent{
		Type:    EventHistory,
		Payload: HistoryPayload{ChatId: p.ChatId, Messages: history},
	})
}

func (g *Gateway) handleLeave(client *Client, payload json.RawMessage) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه گفتگو نامعتبر است", 0)
		return
	}
	g.hub.Leave(p.ChatId, client)
}

func (g *Gateway) handleSendMessage(ctx context.Context, client *Client, payload json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "فرمت پیام نامعتبر است", 0)
		return
	}

	result := g.sendLimiter.Check(ratelimit.Key(client.UserId.String(), "send"))
	if !result.Allowed {
		g.sendError(client, result.Message, result.RetryAfter)
		return
	}

	stored, err := g.chatService.SendMessage(ctx, client.UserId, client.UserName, &dto.SendMessageRequest{
		ChatId:     p.ChatId,
		Text:       p.Text,
		Attachment: p.Attachment,
	})
	if err != nil {
		g.sendServiceError(client, err)
		return
	}

	// The sender gets their own persisted copy back directly; the room
	// broadcast skips the origin so nobody sees the message twice.
	event := OutboundEvent{Type: EventNewMessage, Payload: stored}
	g.hub.SendTo(client, event)
	g.hub.BroadcastToRoom(p.ChatId, event, client)

	g.responder.EnqueueEnrichment(stored.Id)

	if !client.IsAdmin {
		go g.autoReply(p.ChatId, p.Text)
	}
}

// autoReply generates the assistant's answer to a visitor message and
// broadcasts it to the whole room. The generator never errors, so the only
// failure modes here are storage ones.
func (g *Gateway) autoReply(id uuid.UUID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	processed, err := g.responder.ProcessMessage(ctx, &dto.ProcessMessageRequest{
		ChatId: &id,
		Text:   text,
	})
	if err != nil {
		g.logger.Warn("Gateway", "Auto reply skipped", map[string]interface{}{
			"chat_id": id.String(),
			"error":   err.Error(),
		})
		return
	}

	reply, err := g.chatService.SendAssistantReply(ctx, id, processed.Reply, nil)
	if err != nil {
		g.logger.Error("Gateway", "Failed to store assistant reply", map[string]interface{}{
			"chat_id": id.String(),
			"error":   err.Error(),
		})
		return
	}

	g.hub.BroadcastToRoom(id, OutboundEvent{Type: EventNewMessage, Payload: reply}, nil)
}

func (g *Gateway) handleMarkAsRead(ctx context.Context, client *Client, payload json.RawMessage) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه گفتگو نامعتبر است", 0)
		return
	}

	if err := g.chatService.MarkSessionRead(ctx, p.ChatId, client.UserId); err != nil {
		g.sendServiceError(client, err)
		return
	}

	g.hub.BroadcastToRoom(p.ChatId, OutboundEvent{
		Type:    EventMessagesRead,
		Payload: MessagesReadPayload{ChatId: p.ChatId, ReaderId: client.UserId},
	}, client)
}

func (g *Gateway) handleClose(ctx context.Context, client *Client, payload json.RawMessage) {
	var p CloseChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه گفتگو نامعتبر است", 0)
		return
	}
	if !client.IsAdmin {
		g.sendError(client, "فقط مدیران می‌توانند گفتگو را ببندند", 0)
		return
	}

	session, err := g.chatService.CloseSession(ctx, p.ChatId, client.UserId, client.UserName)
	if err != nil {
		g.sendServiceError(client, err)
		return
	}

	g.hub.BroadcastToRoom(p.ChatId, OutboundEvent{Type: EventChatClosed, Payload: session}, nil)
}

func (g *Gateway) handleReopen(ctx context.Context, client *Client, payload json.RawMessage) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه گفتگو نامعتبر است", 0)
		return
	}
	if !client.IsAdmin {
		g.sendError(client, "فقط مدیران می‌توانند گفتگو را باز کنند", 0)
		return
	}

	session, err := g.chatService.ReopenSession(ctx, p.ChatId)
	if err != nil {
		g.sendServiceError(client, err)
		return
	}

	g.hub.BroadcastToRoom(p.ChatId, OutboundEvent{Type: EventChatReopened, Payload: session}, nil)
}

func (g *Gateway) handleDelete(ctx context.Context, client *Client, payload json.RawMessage) {
	var p DeleteMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		g.sendError(client, "شناسه پیام نامعتبر است", 0)
		return
	}

	deleted, err := g.chatService.DeleteMessage(ctx, p.MessageId, client.UserId)
	if err != nil {
		g.sendServiceError(client, err)
		return
	}

	g.hub.BroadcastToRoom(deleted.ChatId, OutboundEvent{
		Type:    EventMessageDeleted,
		Payload: MessageDeletedPayload{ChatId: deleted.ChatId, MessageId: deleted.Id},
	}, nil)
}

// handleTyping relays the indicator without touching storage.
func (g *Gateway) handleTyping(client *Client, payload json.RawMessage) {
	var p TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	p.UserId = client.UserId
	p.UserName = client.UserName
	g.hub.BroadcastToRoom(p.ChatId, OutboundEvent{Type: EventTyping, Payload: p}, client)
}

func (g *Gateway) sendError(client *Client, message string, retryAfter int) {
	g.hub.SendTo(client, OutboundEvent{
		Type:    EventError,
		Payload: ErrorPayload{Message: message, RetryAfter: retryAfter},
	})
}

func (g *Gateway) sendServiceError(client *Client, err error) {
	if appErr, ok := apperror.As(err); ok {
		g.sendError(client, appErr.Message, appErr.RetryAfter)
		return
	}
	g.logger.Error("Gateway", "Unhandled event failure", map[string]interface{}{
		"user_id": client.UserId.String(),
		"error":   err.Error(),
	})
	g.sendError(client, "خطای داخلی سرور", 0)
}
