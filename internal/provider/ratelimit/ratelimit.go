package ratelimit

import (
    "context"
    "sync"
    "time"

    "fareadvisor/internal/provider"
)

// MinInterval spaces calls to the wrapped source by at least Interval.
// Each caller reserves the next free slot, so concurrent batch members queue
// instead of firing together. A canceled context returns before the call.
type MinInterval struct {
    P        provider.Source
    Interval time.Duration

    mu   sync.Mutex
    next time.Time
}

func (m *MinInterval) Name() string            { return m.P.Name() }
func (m *MinInterval) Kind() provider.Kind     { return m.P.Kind() }
func (m *MinInterval) Unwrap() provider.Source { return m.P }

func (m *MinInterval) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    if m.Interval > 0 {
        m.mu.Lock()
        now := time.Now()
        slot := m.next
        if slot.Before(now) {
            slot = now
        }
        m.next = slot.Add(m.Interval)
        m.mu.Unlock()
        if wait := time.Until(slot); wait > 0 {
            t := time.NewTimer(wait)
            defer t.Stop()
            select {
            case <-ctx.Done():
                return provider.Payload{}, ctx.Err()
            case <-t.C:
            }
        }
    }
    return m.P.Fetch(ctx, req)
}

