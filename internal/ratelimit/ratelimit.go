// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
// It supports both non-blocking (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// evictAfter is how long an idle key's limiter is kept before eviction.
const evictAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter. Keys are
// typically client IPs, so idle entries are evicted periodically to
// bound memory.
type KeyedRateLimiter struct {
	mu      sync.RWMutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}

	go krl.cleanup()

	return krl
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking. Use for inbound request protection.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until a request for the given key is allowed or context is canceled.
// Use for outbound requests where you want to respect upstream rate limits.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// getLimiter returns the limiter for a key, creating one if needed.
func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()

	// Fast path: read lock
	krl.mu.RLock()
	e, exists := krl.entries[key]
	krl.mu.RUnlock()

	if exists {
		krl.mu.Lock()
		e.lastSeen = now
		krl.mu.Unlock()
		return e.limiter
	}

	// Slow path: write lock to create
	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Double-check after acquiring write lock
	if e, exists = krl.entries[key]; exists {
		e.lastSeen = now
		return e.limiter
	}

	e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst), lastSeen: now}
	krl.entries[key] = e
	return e.limiter
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

// cleanup evicts limiters that have been idle longer than evictAfter.
func (krl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case now := <-ticker.C:
			krl.mu.Lock()
			for key, e := range krl.entries {
				if now.Sub(e.lastSeen) > evictAfter {
					delete(krl.entries, key)
				}
			}
			krl.mu.Unlock()
		}
	}
}
