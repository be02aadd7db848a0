package main

import (
    "context"
    "encoding/json"
    "errors"
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "fareadvisor/internal/bootstrap"
    "fareadvisor/internal/config"
    "fareadvisor/internal/engine"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
)

func main() {
    var (
        from, to, start, end string
        currency, cabin      string
        order, configPath    string
        logLevel             string
        timeout              int
    )
    today := provider.Day(time.Now())
    flag.StringVar(&from, "from", "CDG", "origin IATA code")
    flag.StringVar(&to, "to", "JFK", "destination IATA code")
    flag.StringVar(&start, "start", today.AddDate(0, 0, 30).Format(provider.DateLayout), "window start YYYY-MM-DD")
    flag.StringVar(&end, "end", today.AddDate(0, 0, 37).Format(provider.DateLayout), "window end YYYY-MM-DD")
    flag.StringVar(&currency, "currency", "EUR", "ISO 4217 currency")
    flag.StringVar(&cabin, "cabin", "Economy", "Economy, Business or First")
    flag.StringVar(&order, "providers", "", "comma-separated provider order (overrides PROVIDER_ORDER)")
    flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
    flag.StringVar(&logLevel, "log", "warn", "log level written to stderr")
    flag.IntVar(&timeout, "timeout", 60, "overall timeout seconds")
    flag.Parse()

    log := logger.New(logLevel)
    cfg, err := config.Load(configPath)
    if err != nil { log.Fatal("config", "err", err) }
    if order != "" {
        cfg.Engine.ProviderOrder = nil
        for _, p := range strings.Split(order, ",") {
            if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
                cfg.Engine.ProviderOrder = append(cfg.Engine.ProviderOrder, p)
            }
        }
    }

    route, err := parseRoute(from, to, start, end, currency, cabin)
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(2)
    }

    app, err := bootstrap.Build(cfg, log)
    if err != nil { log.Fatal("bootstrap", "err", err) }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()
    out, err := app.Engine.Analyze(ctx, route)
    if err != nil {
        var ve *engine.ValidationError
        if errors.As(err, &ve) {
            fmt.Fprintln(os.Stderr, ve)
            os.Exit(2)
        }
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }

    enc := json.NewEncoder(os.Stdout)
    enc.SetIndent("", "  ")
    enc.SetEscapeHTML(false)
    if err := enc.Encode(engine.NewReport(out)); err != nil { log.Fatal("encode", "err", err) }
}

func parseRoute(from, to, start, end, currency, cabin string) (provider.Route, error) {
    s, err := time.Parse(provider.DateLayout, start)
    if err != nil { return provider.Route{}, fmt.Errorf("start: %w", err) }
    e, err := time.Parse(provider.DateLayout, end)
    if err != nil { return provider.Route{}, fmt.Errorf("end: %w", err) }
    c, ok := provider.ParseCabin(cabin)
    if !ok { return provider.Route{}, fmt.Errorf("unknown cabin %q", cabin) }
    return provider.Route{Origin: from, Destination: to, Currency: currency, Cabin: c, Start: s, End: e}, nil
}
