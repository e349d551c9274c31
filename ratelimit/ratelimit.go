package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket bounds how often an upstream may be called. Tokens refill
// in whole interval units; the refill baseline resets to the refill
// moment, not to the interval boundary.
type TokenBucket struct {
	mu             sync.Mutex
	tokens         int
	capacity       int
	refillInterval time.Duration
	lastRefill     time.Time

	now func() time.Time
}

// New returns a full bucket.
func New(capacity int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:         capacity,
		capacity:       capacity,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
		now:            time.Now,
	}
}

// TryAcquire takes one token if available. It never blocks; false means
// the caller skips the protected operation this round.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if units := int(now.Sub(b.lastRefill) / b.refillInterval); units >= 1 {
		b.tokens = min(b.capacity, b.tokens+units)
		b.lastRefill = now
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}
