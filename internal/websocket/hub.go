package websocket

import (
	"encoding/json"
	"sync"

	"school-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub tracks connected clients and the chat rooms they joined. Every
// broadcast is room-keyed; there is no global fan-out.
type Hub struct {
	// Room membership: ChatId -> set of clients.
	rooms map[uuid.UUID]map[*Client]bool

	// All connected clients, joined or not.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserId})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for chatId, members := range h.rooms {
					if members[client] {
						delete(members, client)
						if len(members) == 0 {
							delete(h.rooms, chatId)
						}
					}
				}
				client.shutdown()
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserId})
		}
	}
}

func (h *Hub) Join(chatId uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	members, ok := h.rooms[chatId]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[chatId] = members
	}
	members[client] = true
}

func (h *Hub) Leave(chatId uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatId]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, chatId)
		}
	}
}

// BroadcastToRoom fans an event out to every member of a room. Pass a
// non-nil except to skip the originating connection.
func (h *Hub) BroadcastToRoom(chatId uuid.UUID, event OutboundEvent, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[chatId]))
	for client := range h.rooms[chatId] {
		if client != except {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		h.deliver(client, data)
	}
}

// SendTo delivers an event to a single connection only. Used for history
// replies and for error events, which never leave the origin.
func (h *Hub) SendTo(client *Client, event OutboundEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}
	h.deliver(client, data)
}

func (h *Hub) deliver(client *Client, data []byte) {
	queued, open := client.trySend(data)
	if queued || !open {
		return
	}
	h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{
		"user_id": client.UserId,
	})
	h.unregister <- client
}

func (h *Hub) RoomSize(chatId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatId])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
