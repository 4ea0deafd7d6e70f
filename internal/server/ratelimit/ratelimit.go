// Package ratelimit throttles clients per endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// bucket holds up to capacity tokens and refills continuously.
type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	last       time.Time
	lastAccess time.Time
}

func newBucket(capacity int, refillRate float64, now time.Time) *bucket {
	return &bucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		last:       now,
		lastAccess: now,
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.last = now
}

// take consumes a token when one is available and reports the state after.
func (b *bucket) take(now time.Time) Info {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	b.lastAccess = now
	info := Info{ResetTime: now}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)
	if b.refillRate > 0 {
		if missing := b.capacity - b.tokens; missing > 0 {
			info.ResetTime = now.Add(seconds(missing / b.refillRate))
		}
		if !info.Allowed {
			info.RetryAfter = seconds((1 - b.tokens) / b.refillRate)
		}
	}
	return info
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAccess.Before(cutoff)
}

// Info describes the limit applied to one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter tracks one bucket per client, endpoint and method.
type Limiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a Limiter and starts its idle-bucket sweeper when
// CleanupInterval is set.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		config:  cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go l.sweep(cfg.CleanupInterval)
	}
	return l
}

// Allow consumes a token for the request and reports whether it may proceed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Allowlist[clientID] {
		return true, Info{Allowed: true}
	}

	ep := MatchEndpoint(path, method, l.config.Endpoints)
	if ep == nil {
		ep = &EndpointConfig{Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if ep.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + "|" + method + "|" + ep.key(path)
	now := l.now()
	b := l.bucketFor(key, *ep, now)

	info := b.take(now)
	info.Limit = ep.Limit
	return info.Allowed, info
}

func (l *Limiter) bucketFor(key string, ep EndpointConfig, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := ep.Burst
	if capacity <= 0 {
		capacity = ep.Limit
	}
	b := newBucket(capacity, float64(ep.Limit)/ep.Window.Seconds(), now)
	l.buckets[key] = b
	return b
}

func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(l.now().Add(-time.Hour))
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets untouched since cutoff.
func (l *Limiter) evictIdle(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Stop ends the sweeper.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
