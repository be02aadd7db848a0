package cache

import (
    "context"
    "sync"
    "time"
)

// entry stores one cached value with its expiry.
type entry[V any] struct {
    expiresAt time.Time
    value     V
}

// Store is a process-local TTL map safe for concurrent use.
// Expiry is lazy: an expired entry reads as absent and is dropped on access.
type Store[V any] struct {
    mu       sync.RWMutex
    items    map[string]entry[V]
    maxItems int
    now      func() time.Time
}

// Option configures a Store.
type Option func(*options)

type options struct {
    maxItems int
    now      func() time.Time
}

// WithMaxItems caps the number of entries; 0 means unbounded.
func WithMaxItems(n int) Option {
    return func(o *options) { o.maxItems = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
    return func(o *options) { o.now = now }
}

// New creates an empty Store.
func New[V any](opts ...Option) *Store[V] {
    o := options{now: time.Now}
    for _, opt := range opts {
        opt(&o)
    }
    return &Store[V]{items: make(map[string]entry[V]), maxItems: o.maxItems, now: o.now}
}

// Get returns the live value for key.
func (s *Store[V]) Get(key string) (V, bool) {
    var zero V
    s.mu.RLock()
    e, ok := s.items[key]
    s.mu.RUnlock()
    if !ok {
        return zero, false
    }
    if !s.now().Before(e.expiresAt) {
        s.mu.Lock()
        // re-check: a concurrent Set may have refreshed it
        if cur, ok := s.items[key]; ok && !s.now().Before(cur.expiresAt) {
            delete(s.items, key)
        }
        s.mu.Unlock()
        return zero, false
    }
    return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
    if ttl <= 0 {
        return
    }
    now := s.now()
    s.mu.Lock()
    s.items[key] = entry[V]{expiresAt: now.Add(ttl), value: value}
    if s.maxItems > 0 && len(s.items) > s.maxItems {
        s.evictLocked(now, key)
    }
    s.mu.Unlock()
}

// Delete drops key.
func (s *Store[V]) Delete(key string) {
    s.mu.Lock()
    delete(s.items, key)
    s.mu.Unlock()
}

// Len counts stored entries, expired ones included until swept.
func (s *Store[V]) Len() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.items)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store[V]) Sweep() int {
    now := s.now()
    n := 0
    s.mu.Lock()
    for k, e := range s.items {
        if !now.Before(e.expiresAt) {
            delete(s.items, k)
            n++
        }
    }
    s.mu.Unlock()
    return n
}

// Janitor sweeps every interval until ctx is done.
func (s *Store[V]) Janitor(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        return
    }
    t := time.NewTicker(interval)
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

// evictLocked removes expired entries first, then arbitrary ones, never keep.
func (s *Store[V]) evictLocked(now time.Time, keep string) {
    for k, e := range s.items {
        if len(s.items) <= s.maxItems {
            return
        }
        if k != keep && !now.Before(e.expiresAt) {
            delete(s.items, k)
        }
    }
    for k := range s.items {
        if len(s.items) <= s.maxItems {
            return
        }
        if k != keep {
            delete(s.items, k)
        }
    }
}
