// Package pending remembers a protected action across the login round-trip.
// An action is consumed at most once.
package pending

import (
	"context"
	"sync"
	"time"
)

// ActionType names what the visitor was trying to do.
type ActionType string

// ActionApply opens the application form for a job.
const ActionApply ActionType = "apply"

// DefaultTTL bounds how long a pending action survives an abandoned login.
const DefaultTTL = 30 * time.Minute

// Action is a deferred protected action.
type Action struct {
	Type      ActionType `json:"type"`
	JobID     string     `json:"jobId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Store keeps at most one pending action per visitor key.
type Store interface {
	// Remember replaces any action already held for key.
	Remember(ctx context.Context, key string, action Action) error
	// Take returns and removes the action for key, or nil when none is held.
	Take(ctx context.Context, key string) (*Action, error)
	Close() error
}

// Memory is an in-process Store. A background sweeper drops expired
// actions so abandoned logins do not accumulate.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	actions map[string]memoryEntry

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	action  Action
	expires time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	sweepInterval time.Duration
}

// WithSweepInterval sets how often expired actions are dropped. The
// default is the TTL, capped at one minute.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.sweepInterval = d }
}

// NewMemory returns a Memory store and starts its sweeper. A zero ttl means
// DefaultTTL. Close stops the sweeper.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := memoryOptions{sweepInterval: min(ttl, time.Minute)}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Memory{
		ttl:     ttl,
		now:     time.Now,
		actions: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go m.sweep(o.sweepInterval)
	return m
}

func (m *Memory) Remember(_ context.Context, key string, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now
	}
	m.actions[key] = memoryEntry{action: action, expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) Take(_ context.Context, key string) (*Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.actions[key]
	if !ok {
		return nil, nil
	}
	delete(m.actions, key)
	if m.now().After(entry.expires) {
		return nil, nil
	}
	return &entry.action, nil
}

// Len reports how many actions are held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

// Close stops the sweeper and waits for it to exit. It is safe to call
// more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.stopped
	return nil
}

func (m *Memory) sweep(interval time.Duration) {
	defer close(m.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stop:
			return
		}
	}
}

// evictExpired drops every action past its expiry.
func (m *Memory) evictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for key, entry := range m.actions {
		if now.After(entry.expires) {
			delete(m.actions, key)
			n++
		}
	}
	return n
}
