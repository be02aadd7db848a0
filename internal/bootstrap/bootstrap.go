// Package bootstrap assembles the engine and its sources from configuration.
package bootstrap

import (
    "context"
    "fmt"
    "net/http"
    "time"

    "fareadvisor/internal/config"
    "fareadvisor/internal/engine"
    "fareadvisor/internal/httpx"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/metrics"
    "fareadvisor/internal/provider"
    "fareadvisor/internal/provider/amadeus"
    "fareadvisor/internal/provider/amadeusadapter"
    "fareadvisor/internal/provider/cache"
    "fareadvisor/internal/provider/flightsky"
    "fareadvisor/internal/provider/googlecal"
    "fareadvisor/internal/provider/ratelimit"
    "fareadvisor/internal/provider/synthetic"
)

// App is the wired process: one engine plus the caches needing a janitor.
type App struct {
    Engine  *engine.Engine
    Metrics *metrics.Registry
    Sources []provider.Source

    sweepers []func(ctx context.Context, interval time.Duration)
}

// Build creates every source named in cfg.Engine.ProviderOrder, wraps it in
// its rate limit and cache decorators, and adds the synthetic fallback when
// enabled. Missing credentials only produce a warning.
func Build(cfg config.Config, log logger.Logger) (*App, error) {
    if log == nil { log = logger.NewNop() }
    app := &App{Metrics: metrics.NewRegistry()}

    for _, name := range cfg.Engine.ProviderOrder {
        var (
            src    provider.Source
            limits config.Limits
            err    error
        )
        switch name {
        case amadeus.Name:
            src, err = buildAmadeus(cfg.Amadeus, log)
            limits = cfg.Amadeus.Limits
        case flightsky.Name:
            src, limits = buildFlightSky(cfg.FlightSky, log), cfg.FlightSky.Limits
        case googlecal.Name:
            src, limits = buildGoogle(cfg.Google, log), cfg.Google.Limits
        case synthetic.Name, engine.FallbackSource:
            continue
        default:
            return nil, fmt.Errorf("unknown provider %q in provider order", name)
        }
        if err != nil { return nil, err }
        app.Sources = append(app.Sources, app.decorate(src, limits))
    }

    opts := []engine.Option{
        engine.WithLogger(log),
        engine.WithMetrics(app.Metrics),
        engine.WithResultTTL(time.Duration(cfg.Engine.ResultCacheTTLSec) * time.Second),
        engine.WithBatch(engine.BatchPolicy{Size: cfg.Engine.BatchSize, Pause: time.Duration(cfg.Engine.BatchPauseMs) * time.Millisecond}),
        engine.WithRetry(engine.RetryPolicy{MaxRetries: cfg.Engine.RetryMax, Base: time.Duration(cfg.Engine.RetryBaseMs) * time.Millisecond}),
    }
    if cfg.Engine.MaxWindowDays > 0 {
        opts = append(opts, engine.WithMaxDates(cfg.Engine.MaxWindowDays))
    }
    results := cache.New[engine.Outcome](cache.WithMaxItems(cfg.Engine.ResultCacheMax))
    app.sweepers = append(app.sweepers, results.Janitor)
    opts = append(opts, engine.WithResultStore(results))

    if cfg.Synthetic.Enabled {
        seed := cfg.Synthetic.Seed
        if seed == 0 { seed = uint64(time.Now().UnixNano()) }
        var fb provider.Source = synthetic.New(seed)
        if cfg.Synthetic.CacheTTLSeconds > 0 {
            store := cache.New[provider.Payload](cache.WithMaxItems(10000))
            app.sweepers = append(app.sweepers, store.Janitor)
            fb = &cache.Provider{P: fb, TTL: time.Duration(cfg.Synthetic.CacheTTLSeconds) * time.Second, Store: store}
        }
        opts = append(opts, engine.WithFallback(fb))
    } else {
        log.Warn("synthetic fallback disabled, analyses fail when every provider does")
    }

    app.Engine = engine.New(app.Sources, opts...)
    log.Info("engine ready", "sources", app.Engine.Sources())
    return app, nil
}

// Janitors sweeps expired cache entries until ctx is done.
func (a *App) Janitors(ctx context.Context, interval time.Duration) {
    for _, sweep := range a.sweepers {
        go sweep(ctx, interval)
    }
}

// decorate prefers a token bucket when a per-minute budget is set, otherwise
// a minimum interval, then memoizes payloads.
func (a *App) decorate(src provider.Source, l config.Limits) provider.Source {
    switch {
    case l.MaxRequestsPerMinute > 0:
        src = &ratelimit.TokenBucketSource{P: src, TB: ratelimit.PerMinute(l.MaxRequestsPerMinute, max(1, l.Burst))}
    case l.MinRequestIntervalMs > 0:
        src = &ratelimit.MinInterval{P: src, Interval: time.Duration(l.MinRequestIntervalMs) * time.Millisecond}
    }
    if l.CacheTTLSeconds > 0 {
        store := cache.New[provider.Payload](cache.WithMaxItems(l.CacheMaxItems))
        a.sweepers = append(a.sweepers, store.Janitor)
        src = &cache.Provider{P: src, TTL: time.Duration(l.CacheTTLSeconds) * time.Second, Store: store}
    }
    return src
}

func timeout(sec int, def time.Duration) time.Duration {
    if sec <= 0 { return def }
    return time.Duration(sec) * time.Second
}

func buildAmadeus(c config.Amadeus, log logger.Logger) (provider.Source, error) {
    hc := httpx.New(timeout(c.TimeoutSec, 10*time.Second))
    client, err := amadeus.NewAmadeusAPIClient(
        amadeus.WithBaseURL(c.BaseURL),
        amadeus.WithHTTPClient(hc.HTTP),
        amadeus.WithHeader(http.Header{"User-Agent": []string{hc.UserAgent}}),
    )
    if err != nil { return nil, fmt.Errorf("amadeus client: %w", err) }
    if c.ClientID == "" || c.ClientSecret == "" {
        log.Warn("amadeus credentials not set (AMADEUS_API_KEY, AMADEUS_API_SECRET_KEY)")
    }
    return amadeusadapter.New(amadeusadapter.Config{
        ClientID:     c.ClientID,
        ClientSecret: c.ClientSecret,
        TokenURL:     c.TokenURL,
        TokenTTL:     time.Duration(c.TokenTTLSec) * time.Second,
        TokenHTTP:    hc.HTTP,
    }, client, amadeusadapter.WithLogger(log)), nil
}

func buildFlightSky(c config.FlightSky, log logger.Logger) provider.Source {
    p := flightsky.New(flightsky.Config{
        Host:     c.Host,
        Key:      c.Key,
        Market:   c.Market,
        Locale:   c.Locale,
        Currency: c.Currency,

        ResolverTTL: time.Duration(c.ResolverTTLSec) * time.Second,
    }, httpx.New(timeout(c.TimeoutSec, 15*time.Second)), flightsky.WithLogger(log))
    if !p.Configured() {
        log.Warn("flightsky credentials not set (FLIGHTSKY_API_HOST, FLIGHTSKY_API_KEY)")
    }
    return p
}

func buildGoogle(c config.Google, log logger.Logger) provider.Source {
    p := googlecal.New(googlecal.Config{
        Host:     c.Host,
        Key:      c.Key,
        Language: c.Language,
        Location: c.Location,
        Currency: c.Currency,

        ResolverTTL: time.Duration(c.ResolverTTLSec) * time.Second,
    }, httpx.New(timeout(c.TimeoutSec, 15*time.Second)), googlecal.WithLogger(log))
    if !p.Configured() {
        log.Warn("google flights credentials not set (GOOGLE_FLIGHTS_API_HOST, GOOGLE_FLIGHTS_API_KEY)")
    }
    return p
}
