// Package engine drives price sources over a departure window and turns the
// first usable answer into an analyzed timeline.
package engine

import (
    "context"
    "errors"
    "fmt"
    "regexp"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/singleflight"

    "fareadvisor/internal/analyzer"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/metrics"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/provider/cache"
    "fareadvisor/internal/timeline"
)

// FallbackSource is reported when the synthetic generator produced the result.
const FallbackSource = "fallback"

const (
    DefaultResultTTL = 10 * time.Minute
    DefaultMaxDates  = 30
)

var iata = regexp.MustCompile(`^[A-Z]{3}$`)

// Outcome is one finished analysis. It is immutable once returned.
type Outcome struct {
    Route          provider.Route
    Source         string
    Timeline       timeline.Timeline
    Recommendation analyzer.Recommendation
}

// Engine is the per-process context: sources in priority order, the
// synthetic fallback, the result cache and the missing-credentials warnings.
type Engine struct {
    sources   []provider.Source
    fallback  provider.Source
    results   *cache.Store[Outcome]
    resultTTL time.Duration
    batch     BatchPolicy
    retry     RetryPolicy
    maxDates  int
    log       logger.Logger
    metrics   *metrics.Registry
    now       func() time.Time

    mu     sync.Mutex
    warned map[string]bool
    sf     singleflight.Group
}

type Option func(*Engine)

// WithFallback sets the last-resort source, normally the synthetic generator.
func WithFallback(s provider.Source) Option { return func(e *Engine) { e.fallback = s } }

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *metrics.Registry) Option { return func(e *Engine) { e.metrics = m } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithResultTTL sets how long analyses are served from cache; 0 disables it.
func WithResultTTL(d time.Duration) Option { return func(e *Engine) { e.resultTTL = d } }

// WithResultStore shares the result cache, e.g. to run a janitor over it.
func WithResultStore(s *cache.Store[Outcome]) Option { return func(e *Engine) { e.results = s } }

func WithBatch(b BatchPolicy) Option { return func(e *Engine) { e.batch = b } }

func WithRetry(r RetryPolicy) Option { return func(e *Engine) { e.retry = r } }

// WithMaxDates caps the dates a single-date source is asked about.
func WithMaxDates(n int) Option { return func(e *Engine) { e.maxDates = n } }

func New(sources []provider.Source, opts ...Option) *Engine {
    e := &Engine{
        sources:   sources,
        resultTTL: DefaultResultTTL,
        batch:     DefaultBatch,
        retry:     DefaultRetry,
        maxDates:  DefaultMaxDates,
        log:       logger.NewNop(),
        now:       time.Now,
        warned:    map[string]bool{},
    }
    for _, o := range opts {
        o(e)
    }
    if e.metrics == nil {
        e.metrics = metrics.NewRegistry()
    }
    if e.results == nil {
        e.results = cache.New[Outcome](cache.WithClock(e.now))
    }
    return e
}

// Sources lists the configured source names in priority order.
func (e *Engine) Sources() []string {
    out := make([]string, 0, len(e.sources)+1)
    for _, s := range e.sources {
        out = append(out, s.Name())
    }
    if e.fallback != nil {
        out = append(out, FallbackSource)
    }
    return out
}

// Validate normalizes route: upper-cased codes, EUR and Economy defaults,
// windows longer than the date cap clamped.
func (e *Engine) Validate(r provider.Route) (provider.Route, error) {
    r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
    r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
    r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
    if !iata.MatchString(r.Origin) {
        return r, &ValidationError{Field: "from", Reason: "must be a 3-letter IATA code"}
    }
    if !iata.MatchString(r.Destination) {
        return r, &ValidationError{Field: "to", Reason: "must be a 3-letter IATA code"}
    }
    if r.Currency == "" {
        r.Currency = "EUR"
    } else if !iata.MatchString(r.Currency) {
        return r, &ValidationError{Field: "currency", Reason: "must be a 3-letter ISO 4217 code"}
    }
    if r.Cabin == "" {
        r.Cabin = provider.Economy
    }
    if r.Start.IsZero() || r.End.IsZero() {
        return r, &ValidationError{Field: "startDate", Reason: "window dates are required"}
    }
    r.Start, r.End = provider.Day(r.Start), provider.Day(r.End)
    if !r.Start.Before(r.End) {
        return r, &ValidationError{Field: "endDate", Reason: "must be after startDate"}
    }
    if limit := r.Start.AddDate(0, 0, e.maxDates); r.End.After(limit) {
        r.End = limit
    }
    return r, nil
}

func (e *Engine) cacheKey(r provider.Route, today time.Time) string {
    req := provider.Request{Route: r}
    return "analysis:" + strings.Join(e.Sources(), ",") + ":" + req.Key("route") + ":" + today.Format(provider.DateLayout)
}

// Analyze returns the analysis for route, from cache when a previous run is
// still fresh. Only exhaustion of every source, the fallback included,
// surfaces as an error (*UnavailableError); malformed routes yield
// *ValidationError.
func (e *Engine) Analyze(ctx context.Context, route provider.Route) (Outcome, error) {
    route, err := e.Validate(route)
    if err != nil {
        e.metrics.ObserveAnalysis("invalid")
        return Outcome{}, err
    }
    today := provider.Day(e.now())
    key := e.cacheKey(route, today)
    log := e.log.With("request_id", uuid.NewString(), "route", route.Origin+"-"+route.Destination)

    if o, ok := e.results.Get(key); ok {
        e.metrics.ObserveCache("result", true)
        log.Debug("analysis served from cache", "source", o.Source)
        return o, nil
    }
    e.metrics.ObserveCache("result", false)

    for {
        v, err, shared := e.sf.Do(key, func() (any, error) {
            o, err := e.run(ctx, log, route, today)
            // A run cut short by its caller is not a verdict on the route.
            f := flight{Outcome: o, cut: ctx.Err() != nil}
            if err == nil && !f.cut {
                e.results.Set(key, o, e.resultTTL)
            }
            return f, err
        })
        f, _ := v.(flight)
        if shared {
            if f.cut && ctx.Err() == nil {
                log.Debug("joined analysis was canceled by its caller, running again")
                continue
            }
            log.Debug("joined in-flight analysis")
        }
        if err != nil {
            e.metrics.ObserveAnalysis("unavailable")
            return Outcome{}, err
        }
        e.metrics.ObserveAnalysis("ok")
        return f.Outcome, nil
    }
}

// flight is what one coalesced run hands to everyone waiting on it.
type flight struct {
    Outcome
    cut bool
}

type stage int

const (
    stageReal stage = iota
    stageSynthetic
    stageDone
    stageExhausted
)

// run walks real sources in order, then the fallback.
func (e *Engine) run(ctx context.Context, log logger.Logger, route provider.Route, today time.Time) (Outcome, error) {
    req := provider.Request{Route: route, Today: today}
    var (
        st     = stageReal
        next   int
        last   error
        tl     timeline.Timeline
        source string
    )
    for st != stageDone && st != stageExhausted {
        switch st {
        case stageReal:
            if next >= len(e.sources) {
                st = stageSynthetic
                continue
            }
            s := e.sources[next]
            next++
            got, err := e.try(ctx, log, s, req)
            if err != nil {
                last = err
                log.Warn("provider failed, trying next", "provider", s.Name(), "err", err)
                continue
            }
            tl, source, st = got, s.Name(), stageDone
        case stageSynthetic:
            if e.fallback == nil {
                st = stageExhausted
                continue
            }
            got, err := e.try(ctx, log, e.fallback, req)
            if err != nil {
                last = err
                st = stageExhausted
                continue
            }
            if last != nil {
                log.Warn("serving synthetic estimate", "last_err", last)
            }
            tl, source, st = got, FallbackSource, stageDone
        }
    }
    if st == stageExhausted {
        if last == nil {
            last = errors.New("no price source configured")
        }
        log.Error("analysis unavailable", "err", last)
        return Outcome{}, &UnavailableError{Last: last}
    }

    e.metrics.ObserveSource(source)
    log.Info("analysis ready", "source", source, "points", len(tl.Observations))
    return Outcome{
        Route:          route,
        Source:         source,
        Timeline:       tl,
        Recommendation: analyzer.Analyze(tl.Observations),
    }, nil
}

// try asks one source for the window and normalizes what came back.
func (e *Engine) try(ctx context.Context, log logger.Logger, s provider.Source, req provider.Request) (timeline.Timeline, error) {
    var (
        payloads []provider.Payload
        err      error
    )
    switch s.Kind() {
    case provider.KindSingleDate:
        payloads, err = e.fetchDaily(ctx, log, s, req)
    default:
        var p provider.Payload
        p, err = e.fetch(ctx, s, req, e.retry)
        payloads = []provider.Payload{p}
    }
    if err != nil {
        e.warnMissing(log, s.Name(), err)
        return timeline.Timeline{}, err
    }
    tl, err := timeline.Normalize(timeline.Input{
        Today:    req.Today,
        Start:    req.Route.Start,
        End:      req.Route.End,
        Currency: req.Route.Currency,
    }, payloads...)
    if err != nil {
        return timeline.Timeline{}, fmt.Errorf("%s: %w", s.Name(), err)
    }
    return tl, nil
}

// warnMissing logs once per source whose credentials were never configured.
func (e *Engine) warnMissing(log logger.Logger, name string, err error) {
    var ae *provider.AuthError
    if !errors.As(err, &ae) || !ae.Missing {
        return
    }
    e.mu.Lock()
    seen := e.warned[name]
    e.warned[name] = true
    e.mu.Unlock()
    if !seen {
        log.Warn("provider credentials are not configured, real prices from it are unavailable", "provider", name)
    }
}
