package ratelimit

import (
    "context"
    "sync"
    "time"

    "fareadvisor/internal/provider"
)

// TokenBucket refills at rate tokens per second up to capacity (the burst).
// It starts full.
type TokenBucket struct {
    rate     float64
    capacity float64

    mu     sync.Mutex
    tokens float64
    last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
    if tokensPerSecond <= 0 { tokensPerSecond = 1e-7 }
    if burst <= 0 { burst = 1 }
    return &TokenBucket{rate: tokensPerSecond, capacity: float64(burst), tokens: float64(burst), last: time.Now()}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
    return NewTokenBucket(float64(rpm)/60.0, burst)
}

// take consumes a token if one is available, otherwise it returns how long
// until the next one accrues.
func (tb *TokenBucket) take(now time.Time) (time.Duration, bool) {
    tb.mu.Lock()
    defer tb.mu.Unlock()
    if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
        tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.rate)
        tb.last = now
    }
    if tb.tokens >= 1 {
        tb.tokens--
        return 0, true
    }
    d := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
    return max(d, time.Millisecond), false
}

// Allow reports whether a token was taken without waiting.
func (tb *TokenBucket) Allow() bool {
    _, ok := tb.take(time.Now())
    return ok
}

// Wait blocks until a token is taken or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
    for {
        d, ok := tb.take(time.Now())
        if ok {
            return nil
        }
        timer := time.NewTimer(d)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
    }
}

// TokenBucketSource gates calls to the wrapped source through a token bucket.
type TokenBucketSource struct {
    P  provider.Source
    TB *TokenBucket
}

func (t *TokenBucketSource) Name() string            { return t.P.Name() }
func (t *TokenBucketSource) Kind() provider.Kind     { return t.P.Kind() }
func (t *TokenBucketSource) Unwrap() provider.Source { return t.P }

func (t *TokenBucketSource) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    if t.TB != nil {
        if err := t.TB.Wait(ctx); err != nil { return provider.Payload{}, err }
    }
    return t.P.Fetch(ctx, req)
}
