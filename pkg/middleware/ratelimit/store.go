package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result describes the state of one key's window after a hit.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// Store counts hits per key in fixed windows.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type entry struct {
	count   int
	resetAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry), now: time.Now}
}

// WithClock replaces the time source; intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++

	remaining := limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   e.resetAt,
		Allowed:   e.count <= limit,
	}, nil
}

// Sweep drops expired windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
