package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateKeyPrefix = "ratelimit:"

// CreateLimiter throttles room creation per source identifier with a fixed
// window backed by the store's atomic increment. Counting happens before the
// check: the attempt that trips the limit is itself counted.
type CreateLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

func NewCreateLimiter(store Store, limit int64, window time.Duration) *CreateLimiter {
	return &CreateLimiter{store: store, limit: limit, window: window}
}

// Allow records one attempt for source and reports whether it may proceed.
// When rejected, retryAfter is the remaining window. An empty source falls
// into a single shared anonymous bucket.
func (l *CreateLimiter) Allow(ctx context.Context, source string) (ok bool, retryAfter time.Duration, err error) {
	if source == "" {
		source = "anonymous"
	}

	count, remaining, err := l.store.IncrWindow(ctx, rateKeyPrefix+source, l.window)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", source, err)
	}
	if count > l.limit {
		return false, remaining, nil
	}
	return true, 0, nil
}

// HandshakeLimiter throttles WebSocket upgrades per client IP with in-process
// token buckets. Entries unused for ten minutes are dropped.
type HandshakeLimiter struct {
	mu       sync.Mutex
	limiters map[string]*handshakeEntry
	rate     float64
}

type handshakeEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewHandshakeLimiter(rps float64) *HandshakeLimiter {
	hl := &HandshakeLimiter{
		limiters: make(map[string]*handshakeEntry),
		rate:     rps,
	}
	go hl.cleanup()
	return hl
}

func (hl *HandshakeLimiter) Allow(ip string) bool {
	hl.mu.Lock()
	entry, ok := hl.limiters[ip]
	if !ok {
		entry = &handshakeEntry{
			limiter: rate.NewLimiter(rate.Limit(hl.rate), int(hl.rate)*2),
		}
		hl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	hl.mu.Unlock()

	return entry.limiter.Allow()
}

func (hl *HandshakeLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		hl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, entry := range hl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(hl.limiters, ip)
			}
		}
		hl.mu.Unlock()
	}
}
