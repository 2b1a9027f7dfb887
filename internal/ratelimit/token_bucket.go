// Package ratelimit provides the deterministic token bucket used to bound
// per-connection inbound signaling traffic.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time so limiter behavior is fully deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// nanoTokensPerToken is the fixed-point scale: one token is 1e9 nano-tokens,
// so a fill rate of X tokens/sec adds exactly X nano-tokens per elapsed
// nanosecond without float rounding.
const nanoTokensPerToken = int64(time.Second)

// TokenBucket refills at an integer rate (tokens/sec) up to a fixed capacity.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	capacityNano int64
	fillRate     int64 // tokens/sec

	availableNano int64
	last          time.Time
}

func NewTokenBucket(clock Clock, capacityTokens, fillRate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	if capacityTokens < 0 {
		capacityTokens = 0
	}
	if fillRate < 0 {
		fillRate = 0
	}
	capacityNano := capacityTokens * nanoTokensPerToken
	return &TokenBucket{
		clock:         clock,
		capacityNano:  capacityNano,
		fillRate:      fillRate,
		availableNano: capacityNano,
		last:          clock.Now(),
	}
}

// Allow consumes the given number of tokens if available. tokens <= 0 always
// succeeds.
func (b *TokenBucket) Allow(tokens int64) bool {
	if tokens <= 0 {
		return true
	}
	cost := tokens * nanoTokensPerToken

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.availableNano < cost {
		return false
	}
	b.availableNano -= cost
	return true
}

func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	if now.Before(b.last) {
		// Time went backwards; re-anchor without refilling.
		b.last = now
		return
	}
	elapsed := now.Sub(b.last).Nanoseconds()
	if elapsed <= 0 {
		return
	}
	b.last = now

	if b.fillRate <= 0 || b.capacityNano <= 0 {
		return
	}

	need := b.capacityNano - b.availableNano
	if need <= 0 {
		return
	}
	// fillRate tokens/sec equals fillRate nano-tokens/ns at this scale. Clamp
	// before multiplying so long idle periods cannot overflow.
	if elapsed >= need/b.fillRate+1 {
		b.availableNano = b.capacityNano
		return
	}
	b.availableNano += elapsed * b.fillRate
	if b.availableNano > b.capacityNano {
		b.availableNano = b.capacityNano
	}
}
