package cache

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"school-chat-be/internal/config"
	"school-chat-be/internal/entity"
	"school-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// maxMessagesPerEntry bounds how much conversation context one entry keeps.
const maxMessagesPerEntry = 50

type cacheEntry struct {
	messages    []*entity.ChatMessage
	lastTouched time.Time
	seq         uint64 // insertion order, lower = older
}

// ConversationCache keeps recent conversation context in memory so the
// responder does not rebuild it from the database on every message.
//
// Eviction is a circuit breaker, not a precise LRU: a periodic sweep purges
// entries by TTL, bounds the map to MaxEntries by insertion order, and under
// memory pressure forces a GC (high watermark) or drops everything
// (critical watermark). The size bound also holds on insert so the map can
// never exceed MaxEntries between sweeps.
type ConversationCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	nextSeq uint64

	cfg   config.CacheConfig
	clock func() time.Time
	log   logger.ILogger

	// heapUsage samples the process heap as a 0..1 fraction; injectable
	// so pressure handling is testable.
	heapUsage func() float64
	forceGC   func()

	disposeOnce sync.Once
	done        chan struct{}
}

func NewConversationCache(cfg config.CacheConfig, log logger.ILogger) *ConversationCache {
	c := newConversationCache(cfg, log, time.Now)
	go c.sweepLoop()
	return c
}

// NewConversationCacheWithClock builds a cache without a background
// sweeper, for tests driving time and sweeps directly.
func NewConversationCacheWithClock(cfg config.CacheConfig, log logger.ILogger, clock func() time.Time) *ConversationCache {
	return newConversationCache(cfg, log, clock)
}

func newConversationCache(cfg config.CacheConfig, log logger.ILogger, clock func() time.Time) *ConversationCache {
	return &ConversationCache{
		entries:   make(map[uuid.UUID]*cacheEntry),
		cfg:       cfg,
		clock:     clock,
		log:       log,
		heapUsage: sampleHeapUsage,
		forceGC:   runtime.GC,
		done:      make(chan struct{}),
	}
}

func sampleHeapUsage() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys == 0 {
		return 0
	}
	return float64(ms.HeapAlloc) / float64(ms.HeapSys)
}

// Get returns the cached context for a chat and refreshes its TTL.
func (c *ConversationCache) Get(chatId uuid.UUID) ([]*entity.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[chatId]
	if !ok {
		return nil, false
	}
	e.lastTouched = c.clock()

	out := make([]*entity.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out, true
}

// Put replaces the cached context for a chat.
func (c *ConversationCache) Put(chatId uuid.UUID, messages []*entity.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(messages) > maxMessagesPerEntry {
		messages = messages[len(messages)-maxMessagesPerEntry:]
	}
	stored := make([]*entity.ChatMessage, len(messages))
	copy(stored, messages)

	now := c.clock()
	if e, ok := c.entries[chatId]; ok {
		e.messages = stored
		e.lastTouched = now
		return
	}

	c.entries[chatId] = &cacheEntry{
		messages:    stored,
		lastTouched: now,
		seq:         c.nextSeq,
	}
	c.nextSeq++

	c.evictOverCapLocked()
}

// Append adds one message to a chat's cached context, if present. A miss is
// not an error; the next Get miss rebuilds from storage.
func (c *ConversationCache) Append(chatId uuid.UUID, message *entity.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[chatId]
	if !ok {
		return
	}
	e.messages = append(e.messages, message)
	if len(e.messages) > maxMessagesPerEntry {
		e.messages = e.messages[len(e.messages)-maxMessagesPerEntry:]
	}
	e.lastTouched = c.clock()
}

// Invalidate drops one chat's context (used after deletes).
func (c *ConversationCache) Invalidate(chatId uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, chatId)
}

// Flush drops everything.
func (c *ConversationCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*cacheEntry)
}

func (c *ConversationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOverCapLocked drops oldest-inserted entries until the map is back at
// MaxEntries. Caller holds the lock.
func (c *ConversationCache) evictOverCapLocked() {
	over := len(c.entries) - c.cfg.MaxEntries
	if over <= 0 {
		return
	}

	type candidate struct {
		id  uuid.UUID
		seq uint64
	}
	candidates := make([]candidate, 0, len(c.entries))
	for id, e := range c.entries {
		candidates = append(candidates, candidate{id: id, seq: e.seq})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})
	for i := 0; i < over; i++ {
		delete(c.entries, candidates[i].id)
	}
}

// sweep runs one maintenance pass: TTL purge, size bound, memory check.
func (c *ConversationCache) sweep(now time.Time) {
	c.mu.Lock()
	for id, e := range c.entries {
		if now.Sub(e.lastTouched) >= c.cfg.TTL {
			delete(c.entries, id)
		}
	}
	c.evictOverCapLocked()
	c.mu.Unlock()

	usage := c.heapUsage()
	switch {
	case usage >= c.cfg.CriticalWatermark:
		// Availability over warm caches: drop everything.
		c.Flush()
		c.log.Warn("ConversationCache", "Critical memory pressure, cache flushed", map[string]interface{}{
			"heap_usage": usage,
		})
	case usage >= c.cfg.HighWatermark:
		c.forceGC()
		c.log.Warn("ConversationCache", "High memory pressure, forced GC", map[string]interface{}{
			"heap_usage": usage,
		})
	}
}

func (c *ConversationCache) sweepLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("ConversationCache", "Sweep loop panic", map[string]interface{}{"panic": r})
		}
	}()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(c.clock())
		case <-c.done:
			return
		}
	}
}

// Dispose stops the sweep goroutine. Safe to call more than once.
func (c *ConversationCache) Dispose() {
	c.disposeOnce.Do(func() {
		close(c.done)
	})
}
