package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter answers whether a request attributed to a key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter is an in-process token bucket keyed by caller. Each
// bucket holds up to burst tokens and refills at ratePerMinute tokens per
// minute, so short spikes up to the burst size pass while the sustained
// rate stays capped.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket

	capacity   float64
	refillRate float64 // tokens per second

	stop     chan struct{}
	stopOnce sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

const bucketIdleEviction = time.Hour

// NewTokenBucketLimiter builds a limiter allowing ratePerMinute sustained
// requests with bursts up to burst. A burst below 1 is raised to 1 so a
// fresh bucket always admits its first request.
func NewTokenBucketLimiter(ratePerMinute, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	if ratePerMinute < 1 {
		ratePerMinute = 1
	}
	l := &TokenBucketLimiter{
		buckets:    make(map[string]*tokenBucket),
		capacity:   float64(burst),
		refillRate: float64(ratePerMinute) / 60.0,
		stop:       make(chan struct{}),
	}
	go l.evictIdle()
	return l
}

// Allow takes one token from the key's bucket if available.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Reset forgets the bucket for a key, restoring its full burst.
func (l *TokenBucketLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// Close stops the background eviction loop.
func (l *TokenBucketLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-bucketIdleEviction)
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.lastRefill.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// UserKey namespaces a rate-limit key by authenticated user.
func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// IPKey namespaces a rate-limit key by client address, for callers that
// have not authenticated yet.
func IPKey(ip string) string {
	return fmt.Sprintf("ip:%s", ip)
}
