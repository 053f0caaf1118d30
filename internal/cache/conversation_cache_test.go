package cache

import (
	"fmt"
	"testing"
	"time"

	"school-chat-be/internal/config"
	"school-chat-be/internal/entity"
	"school-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

func testCache(maxEntries int, ttl time.Duration, now *time.Time) *ConversationCache {
	cfg := config.CacheConfig{
		TTL:               ttl,
		SweepInterval:     time.Minute,
		MaxEntries:        maxEntries,
		HighWatermark:     0.80,
		CriticalWatermark: 0.90,
	}
	return NewConversationCacheWithClock(cfg, logger.NewNopLogger(), func() time.Time { return *now })
}

func messages(texts ...string) []*entity.ChatMessage {
	out := make([]*entity.ChatMessage, len(texts))
	for i, text := range texts {
		out[i] = &entity.ChatMessage{Id: uuid.New(), Text: text}
	}
	return out
}

func TestGetMissThenPutHit(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	chatId := uuid.New()

	if _, ok := c.Get(chatId); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	c.Put(chatId, messages("سلام", "خوش آمدید"))
	got, ok := c.Get(chatId)
	if !ok {
		t.Fatal("Get after Put missed")
	}
	if len(got) != 2 || got[0].Text != "سلام" {
		t.Fatalf("unexpected cached context: %+v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	chatId := uuid.New()

	c.Put(chatId, messages("a", "b"))
	got, _ := c.Get(chatId)
	got[0] = &entity.ChatMessage{Text: "mutated"}

	again, _ := c.Get(chatId)
	if again[0].Text != "a" {
		t.Error("caller mutation leaked into cached slice")
	}
}

func TestAppendMissIsNoop(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	chatId := uuid.New()

	c.Append(chatId, &entity.ChatMessage{Text: "orphan"})
	if _, ok := c.Get(chatId); ok {
		t.Error("Append created an entry on miss")
	}
}

func TestAppendExtendsAndCapsEntry(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	chatId := uuid.New()

	c.Put(chatId, messages("first"))
	for i := 0; i < maxMessagesPerEntry+10; i++ {
		c.Append(chatId, &entity.ChatMessage{Text: fmt.Sprintf("m%d", i)})
	}

	got, _ := c.Get(chatId)
	if len(got) != maxMessagesPerEntry {
		t.Fatalf("entry holds %d messages, want %d", len(got), maxMessagesPerEntry)
	}
	if got[len(got)-1].Text != fmt.Sprintf("m%d", maxMessagesPerEntry+9) {
		t.Errorf("last message = %q, want newest append", got[len(got)-1].Text)
	}
}

func TestPutEvictsOldestInsertedOverCap(t *testing.T) {
	now := time.Now()
	c := testCache(3, 30*time.Minute, &now)

	first := uuid.New()
	c.Put(first, messages("oldest"))
	others := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range others {
		c.Put(id, messages("x"))
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(first); ok {
		t.Error("oldest-inserted entry survived over-cap insert")
	}
	for _, id := range others {
		if _, ok := c.Get(id); !ok {
			t.Errorf("entry %s evicted, want kept", id)
		}
	}
}

func TestSweepPurgesExpiredEntries(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)

	stale := uuid.New()
	c.Put(stale, messages("old"))

	now = now.Add(29 * time.Minute)
	fresh := uuid.New()
	c.Put(fresh, messages("new"))

	now = now.Add(2 * time.Minute) // stale is 31m idle, fresh 2m
	c.sweep(now)

	if _, ok := c.Get(stale); ok {
		t.Error("expired entry survived sweep")
	}
	if _, ok := c.Get(fresh); !ok {
		t.Error("fresh entry purged by sweep")
	}
}

func TestGetRefreshesTTL(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	chatId := uuid.New()

	c.Put(chatId, messages("hi"))
	now = now.Add(20 * time.Minute)
	c.Get(chatId) // touch

	now = now.Add(20 * time.Minute) // 40m since Put, 20m since Get
	c.sweep(now)

	if _, ok := c.Get(chatId); !ok {
		t.Error("touched entry purged before its refreshed TTL elapsed")
	}
}

func TestSweepFlushesOnCriticalPressure(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	c.heapUsage = func() float64 { return 0.95 }

	c.Put(uuid.New(), messages("a"))
	c.Put(uuid.New(), messages("b"))
	c.sweep(now)

	if c.Len() != 0 {
		t.Errorf("Len = %d after critical sweep, want 0", c.Len())
	}
}

func TestSweepForcesGCOnHighPressure(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)
	c.heapUsage = func() float64 { return 0.85 }
	gcRan := false
	c.forceGC = func() { gcRan = true }

	c.Put(uuid.New(), messages("a"))
	c.sweep(now)

	if !gcRan {
		t.Error("high watermark did not trigger GC")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want entries kept at high watermark", c.Len())
	}
}

func TestInvalidateAndFlush(t *testing.T) {
	now := time.Now()
	c := testCache(10, 30*time.Minute, &now)

	a, b := uuid.New(), uuid.New()
	c.Put(a, messages("a"))
	c.Put(b, messages("b"))

	c.Invalidate(a)
	if _, ok := c.Get(a); ok {
		t.Error("invalidated entry still cached")
	}
	if _, ok := c.Get(b); !ok {
		t.Error("unrelated entry dropped by Invalidate")
	}

	c.Flush()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Flush, want 0", c.Len())
	}
}
