// Package memory keeps fixed-window counters in process memory.
// Counters are not shared between replicas; use the redis store for that.
package memory

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often expired windows are purged from the map.
const sweepEvery = 1024

type window struct {
	count     int64
	expiresAt time.Time
}

type Store struct {
	mu      sync.Mutex
	windows map[string]*window
	calls   int
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment adds one hit to key. The first hit of a window starts it with
// the given length; expired windows restart at 1.
func (s *Store) Increment(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(length)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.expiresAt.Sub(now), nil
}

// tracked counts windows, expired ones included.
func (s *Store) tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *Store) sweep(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
		}
	}
}
