package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"school-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	h := NewHub(logger.NewNopLogger())
	go h.Run()
	return h
}

func addClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{
		Hub:    h,
		ConnId: uuid.NewString(),
		UserId: uuid.New(),
		Send:   make(chan []byte, buffer),
	}
	h.register <- c
	assert.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[c]
	}, 2*time.Second, 5*time.Millisecond)
	return c
}

func receiveEvent(t *testing.T, c *Client) OutboundEvent {
	t.Helper()
	select {
	case data := <-c.Send:
		var event OutboundEvent
		assert.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return OutboundEvent{}
	}
}

func assertNothingQueued(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if ok {
			t.Fatalf("unexpected event queued: %s", data)
		}
	default:
	}
}

func TestJoinRequiresRegisteredClient(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	stranger := &Client{Hub: h, Send: make(chan []byte, 1)}
	h.Join(chatId, stranger)

	assert.Equal(t, 0, h.RoomSize(chatId))
}

func TestBroadcastSkipsOriginatingClient(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	origin := addClient(t, h, 4)
	other := addClient(t, h, 4)
	h.Join(chatId, origin)
	h.Join(chatId, other)
	assert.Equal(t, 2, h.RoomSize(chatId))

	h.BroadcastToRoom(chatId, OutboundEvent{Type: EventNewMessage}, origin)

	got := receiveEvent(t, other)
	assert.Equal(t, EventNewMessage, got.Type)
	assertNothingQueued(t, origin)
}

func TestSendToReachesOnlyTarget(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	origin := addClient(t, h, 4)
	other := addClient(t, h, 4)
	h.Join(chatId, origin)
	h.Join(chatId, other)

	h.SendTo(origin, OutboundEvent{Type: EventError, Payload: ErrorPayload{Message: "x"}})

	got := receiveEvent(t, origin)
	assert.Equal(t, EventError, got.Type)
	assertNothingQueued(t, other)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	c := addClient(t, h, 4)
	h.Join(chatId, c)
	h.Leave(chatId, c)

	assert.Equal(t, 0, h.RoomSize(chatId))
	h.BroadcastToRoom(chatId, OutboundEvent{Type: EventNewMessage}, nil)
	assertNothingQueued(t, c)
}

func TestBroadcastDuringUnregisterDoesNotPanic(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	c := addClient(t, h, 1)
	extra := addClient(t, h, 256)
	h.Join(chatId, c)
	h.Join(chatId, extra)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.BroadcastToRoom(chatId, OutboundEvent{Type: EventNewMessage}, nil)
			}
		}()
	}
	h.unregister <- c
	wg.Wait()

	assert.Eventually(t, func() bool { return h.ClientCount() <= 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDeliveryAfterUnregisterIsDropped(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	c := addClient(t, h, 4)
	h.Join(chatId, c)

	h.unregister <- c
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	h.SendTo(c, OutboundEvent{Type: EventNewMessage})
	h.BroadcastToRoom(chatId, OutboundEvent{Type: EventNewMessage}, nil)
	assert.Equal(t, 0, h.RoomSize(chatId))
}

func TestFullBufferDropsClient(t *testing.T) {
	h := newTestHub()
	chatId := uuid.New()

	c := addClient(t, h, 1)
	h.Join(chatId, c)

	h.SendTo(c, OutboundEvent{Type: EventNewMessage})
	h.SendTo(c, OutboundEvent{Type: EventNewMessage})

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.RoomSize(chatId))
}
