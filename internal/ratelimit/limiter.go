package ratelimit

import (
	"math"
	"sync"
	"time"

	"school-chat-be/internal/config"
	"school-chat-be/internal/pkg/logger"
)

// Clock abstracts time.Now so window logic is testable without sleeping.
type Clock func() time.Time

// Result annotates the outcome of one Check call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
	// RetryAfter is the whole-second hint for the Retry-After header,
	// ceil of the time left in the current window. Zero when allowed.
	RetryAfter int
	Message    string
}

type windowEntry struct {
	count int
	reset time.Time
}

// Limiter is a fixed-window counter. Windows are discrete: a burst at the
// seam of two windows can pass up to twice the nominal rate. That matches
// the throttling behavior the site has always had; this is not a sliding
// window.
//
// One Limiter instance owns its map and its sweep goroutine. Construct it
// once in the composition root and share it; call Dispose on teardown.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	cfg   config.RateLimitConfig
	clock Clock
	log   logger.ILogger

	disposeOnce sync.Once
	done        chan struct{}
}

func NewLimiter(cfg config.RateLimitConfig, log logger.ILogger) *Limiter {
	l := newLimiter(cfg, log, time.Now)
	go l.sweepLoop()
	return l
}

// NewLimiterWithClock builds a limiter without a background sweeper, for
// tests that drive time and sweeps by hand.
func NewLimiterWithClock(cfg config.RateLimitConfig, log logger.ILogger, clock Clock) *Limiter {
	return newLimiter(cfg, log, clock)
}

func newLimiter(cfg config.RateLimitConfig, log logger.ILogger, clock Clock) *Limiter {
	return &Limiter{
		entries: make(map[string]*windowEntry),
		cfg:     cfg,
		clock:   clock,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Key builds the composite limiter key. Resource may be empty for
// subject-only limiting (the daily history limiter).
func Key(subject, resource string) string {
	if resource == "" {
		return subject
	}
	return subject + ":" + resource
}

// Check counts one request against the key's current window.
func (l *Limiter) Check(key string) Result {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.reset) {
		e = &windowEntry{count: 0, reset: now.Add(l.cfg.Window)}
		l.entries[key] = e
	}
	e.count++

	if e.count > l.cfg.Max {
		retryAfter := int(math.Ceil(e.reset.Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{
			Allowed:    false,
			Limit:      l.cfg.Max,
			Remaining:  0,
			Reset:      e.reset,
			RetryAfter: retryAfter,
			Message:    l.cfg.Message,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - e.count,
		Reset:     e.reset,
	}
}

// Len reports live entries, for the health endpoint.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep removes entries whose window has already ended so idle keys do not
// accumulate. Exercised on a ticker equal to one window length.
func (l *Limiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.After(e.reset) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) sweepLoop() {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("RateLimiter", "Sweep loop panic", map[string]interface{}{"panic": r})
		}
	}()

	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.sweep(l.clock())
			if removed > 0 {
				l.log.Debug("RateLimiter", "Swept expired windows", map[string]interface{}{"removed": removed})
			}
		case <-l.done:
			return
		}
	}
}

// Dispose stops the sweep goroutine. Safe to call more than once.
func (l *Limiter) Dispose() {
	l.disposeOnce.Do(func() {
		close(l.done)
	})
}
