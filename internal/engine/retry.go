package engine

import (
    "context"
    "errors"
    "net/http"
    "time"

    "fareadvisor/internal/provider"
)

// RetryPolicy bounds transient retries. Attempt n (1-based) waits Base*n.
type RetryPolicy struct {
    MaxRetries int
    Base       time.Duration
}

// DefaultRetry is two retries at 500ms, 1s.
var DefaultRetry = RetryPolicy{MaxRetries: 2, Base: 500 * time.Millisecond}

func (p RetryPolicy) delay(attempt int) time.Duration { return p.Base * time.Duration(attempt) }

// transient reports whether err deserves another attempt: 5xx or no response.
func transient(err error) bool {
    var ue *provider.UpstreamError
    return errors.As(err, &ue) && ue.Transient()
}

// expired reports a 401 worth one credential refresh.
func expired(err error) bool {
    var ae *provider.AuthError
    return errors.As(err, &ae) && !ae.Missing && ae.Status == http.StatusUnauthorized
}

func outcome(err error) string {
    var (
        ae *provider.AuthError
        rl *provider.RateLimitError
        ue *provider.UpstreamError
        re *provider.ResolutionError
        ee *provider.EmptyResultError
    )
    switch {
    case err == nil:
        return "ok"
    case errors.As(err, &ae):
        return "auth_error"
    case errors.As(err, &rl):
        return "rate_limited"
    case errors.As(err, &re):
        return "resolution_error"
    case errors.As(err, &ee):
        return "empty"
    case errors.As(err, &ue):
        return "upstream_error"
    case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
        return "canceled"
    }
    return "error"
}

// fetch calls s with the retry loop: a 401 invalidates cached credentials and
// retries once, transient failures retry up to policy.MaxRetries with linear
// backoff. Everything else returns at once.
func (e *Engine) fetch(ctx context.Context, s provider.Source, req provider.Request, policy RetryPolicy) (provider.Payload, error) {
    name := s.Name()
    reauthed := false
    retries := 0
    for {
        started := e.now()
        p, err := s.Fetch(ctx, req)
        e.metrics.ObserveFetch(name, outcome(err), e.now().Sub(started))
        if err == nil {
            return p, nil
        }
        if ctx.Err() != nil {
            return provider.Payload{}, err
        }

        switch {
        case expired(err) && !reauthed && provider.InvalidateCredentials(s):
            reauthed = true
            e.metrics.ObserveRetry(name, "reauth")
            continue
        case transient(err) && retries < policy.MaxRetries:
            retries++
            e.metrics.ObserveRetry(name, "transient")
            if werr := sleep(ctx, policy.delay(retries)); werr != nil {
                return provider.Payload{}, err
            }
            continue
        }
        return provider.Payload{}, err
    }
}

func sleep(ctx context.Context, d time.Duration) error {
    if d <= 0 {
        return ctx.Err()
    }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
