package security

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultMaxTrackedClients caps the number of per-client limiters
	// kept in memory so an attacker cycling client ids cannot grow the
	// map without bound.
	defaultMaxTrackedClients = 10000

	// limiterIdleEviction is how long an untouched limiter survives
	// before the cleanup pass drops it.
	limiterIdleEviction = 15 * time.Minute

	cleanupInterval = 5 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-identifier token bucket. The core uses it
// to bound client-secret validation attempts per clientId, which turns
// offline secret guessing into a rate-bound online attack.
type RateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*limiterEntry
	perSecond   rate.Limit
	burst       int
	maxEntries  int
	logger      *slog.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a per-identifier rate limiter allowing
// attemptsPerSecond sustained attempts with the given burst.
func NewRateLimiter(attemptsPerSecond float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		entries:     make(map[string]*limiterEntry),
		perSecond:   rate.Limit(attemptsPerSecond),
		burst:       burst,
		maxEntries:  defaultMaxTrackedClients,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether an attempt by the given identifier is within
// its budget.
func (rl *RateLimiter) Allow(identifier string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[identifier]
	if !ok {
		if len(rl.entries) >= rl.maxEntries {
			rl.evictStalest()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.entries[identifier] = entry
	}
	entry.lastAccess = now
	return entry.limiter.Allow()
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// evictStalest drops the least recently used entry. Called with the
// lock held.
func (rl *RateLimiter) evictStalest() {
	var stalest string
	var stalestAccess time.Time
	for id, entry := range rl.entries {
		if stalest == "" || entry.lastAccess.Before(stalestAccess) {
			stalest = id
			stalestAccess = entry.lastAccess
		}
	}
	if stalest != "" {
		delete(rl.entries, stalest)
		rl.logger.Debug("evicted rate limiter entry", "tracked", len(rl.entries))
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	threshold := time.Now().Add(-limiterIdleEviction)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cleaned := 0
	for id, entry := range rl.entries {
		if entry.lastAccess.Before(threshold) {
			delete(rl.entries, id)
			cleaned++
		}
	}
	if cleaned > 0 {
		rl.logger.Debug("cleaned up idle rate limiters", "count", cleaned)
	}
}
