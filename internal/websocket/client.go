package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// ConnId identifies this single connection; one user may hold several.
	ConnId string

	UserId   uuid.UUID
	UserName string
	IsAdmin  bool

	// Buffered channel of outbound messages. Guarded by mu so broadcasts
	// racing with an unregister never write to a closed channel.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues data for writePump without blocking. The second return
// reports whether the client still accepts messages at all.
func (c *Client) trySend(data []byte) (queued, open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.Send <- data:
		return true, true
	default:
		return false, true
	}
}

// shutdown closes Send exactly once. Only the hub's run loop calls this;
// deliveries arriving afterwards are dropped by trySend.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps inbound events from the websocket connection into the
// gateway dispatcher.
func (c *Client) readPump(gateway *Gateway) {
	defer func() {
		gateway.Disconnected(c)
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"user_id": c.UserId,
					"error":   err.Error(),
				})
			}
			break
		}
		gateway.Dispatch(c, raw)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued events to the current websocket message.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs wires a fresh connection into the hub and blocks on the read
// pump until the peer disconnects.
func ServeWs(hub *Hub, gateway *Gateway, conn *websocket.Conn, userId uuid.UUID, userName string, isAdmin bool) {
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		ConnId:   uuid.NewString(),
		UserId:   userId,
		UserName: userName,
		IsAdmin:  isAdmin,
		Send:     make(chan []byte, 256),
	}
	client.Hub.register <- client
	gateway.Connected(client)

	go client.writePump()
	client.readPump(gateway)
}
