package engine

import (
    "context"
    "errors"
    "sync"
    "time"

    "golang.org/x/sync/errgroup"

    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
)

// BatchPolicy shapes single-date fan-out: Size concurrent calls per batch,
// Pause between batches.
type BatchPolicy struct {
    Size  int
    Pause time.Duration
}

var DefaultBatch = BatchPolicy{Size: 5, Pause: 200 * time.Millisecond}

// Dates enumerates start..end inclusive, at most limit entries.
func Dates(start, end time.Time, limit int) []time.Time {
    start, end = provider.Day(start), provider.Day(end)
    var out []time.Time
    for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
        if limit > 0 && len(out) == limit {
            break
        }
        out = append(out, d)
    }
    return out
}

// fetchDaily prices every date of the window with a single-date source. Dates
// fail independently. A rate limit or credential failure stops scheduling
// further batches; a done ctx aborts the batch in flight. Whatever completed
// is returned in date order, with the last failure when nothing did.
func (e *Engine) fetchDaily(ctx context.Context, log logger.Logger, s provider.Source, req provider.Request) ([]provider.Payload, error) {
    dates := Dates(req.Route.Start, req.Route.End, e.maxDates)
    results := make([]*provider.Payload, len(dates))
    errs := make([]error, len(dates))
    size := max(1, e.batch.Size)

    for from := 0; from < len(dates); from += size {
        if from > 0 && e.batch.Pause > 0 {
            if err := sleep(ctx, e.batch.Pause); err != nil {
                break
            }
        }
        to := min(from+size, len(dates))

        var (
            g  errgroup.Group
            mu sync.Mutex
        )
        for i := from; i < to; i++ {
            dreq := req
            dreq.Date = dates[i]
            g.Go(func() error {
                p, err := e.fetch(ctx, s, dreq, RetryPolicy{})
                mu.Lock()
                if err != nil {
                    errs[i] = err
                } else {
                    results[i] = &p
                }
                mu.Unlock()
                return nil
            })
        }
        _ = g.Wait()

        if stop := haltingError(errs[from:to]); stop != nil {
            log.Warn("single-date batches stopped", "provider", s.Name(), "done", to, "of", len(dates), "err", stop)
            break
        }
        if ctx.Err() != nil {
            log.Warn("deadline reached during batches", "provider", s.Name(), "done", to, "of", len(dates))
            break
        }
    }

    var (
        out  []provider.Payload
        last error
    )
    for i := range dates {
        if results[i] != nil {
            out = append(out, *results[i])
        } else if errs[i] != nil {
            last = errs[i]
        }
    }
    if len(out) == 0 {
        if last == nil {
            last = ctx.Err()
        }
        if last == nil {
            last = &provider.EmptyResultError{Provider: s.Name()}
        }
        return nil, last
    }
    return out, nil
}

// haltingError returns the first failure that makes further batches pointless.
func haltingError(errs []error) error {
    for _, err := range errs {
        var (
            rl *provider.RateLimitError
            ae *provider.AuthError
        )
        if errors.As(err, &rl) || errors.As(err, &ae) {
            return err
        }
    }
    return nil
}
