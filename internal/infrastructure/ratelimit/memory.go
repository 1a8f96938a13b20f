// Package ratelimit holds the in-process limiter used when no Redis is
// configured. Counters are per replica.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/finaidhub/hub/internal/core/ports"
)

type entry struct {
	// bucket never refills on its own; it is replaced when the window rolls over.
	bucket   *rate.Limiter
	start    time.Time
	lastSeen time.Time
}

// Memory grants max requests per fixed window to each key, the same contract
// as the Redis limiter. Keys idle for a full window are evicted.
type Memory struct {
	mu        sync.Mutex
	keys      map[string]*entry
	max       int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// Option configures a Memory limiter.
type Option func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func NewMemory(max int, window time.Duration, opts ...Option) *Memory {
	if max < 1 {
		max = 1
	}
	m := &Memory{
		keys:   make(map[string]*entry),
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (ports.RateDecision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	e, ok := m.keys[key]
	if !ok || !now.Before(e.start.Add(m.window)) {
		e = &entry{bucket: rate.NewLimiter(0, m.max), start: now}
		m.keys[key] = e
	}
	e.lastSeen = now

	d := ports.RateDecision{Limit: m.max}
	if e.bucket.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = int(math.Max(0, math.Floor(e.bucket.TokensAt(now))))
		return d, nil
	}

	d.RetryAfter = int64(math.Ceil(e.start.Add(m.window).Sub(now).Seconds()))
	if d.RetryAfter < 1 {
		d.RetryAfter = 1
	}
	return d, nil
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for k, e := range m.keys {
		if now.Sub(e.lastSeen) >= m.window {
			delete(m.keys, k)
		}
	}
}
