package main

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "fareadvisor/internal/engine"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/provider"
)

// Analyzer is the engine seen from the transport.
type Analyzer interface {
    Analyze(ctx context.Context, route provider.Route) (engine.Outcome, error)
}

type errorResponse struct {
    Success bool   `json:"success"`
    Error   string `json:"error"`
    Message string `json:"message"`
}

type pricesHandler struct {
    engine  Analyzer
    timeout time.Duration
    log     logger.Logger
}

func (h *pricesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed", Message: "use GET"})
        return
    }
    route, err := parseRoute(r)
    if err != nil {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
        return
    }

    ctx := r.Context()
    if h.timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, h.timeout)
        defer cancel()
    }
    out, err := h.engine.Analyze(ctx, route)
    var ve *engine.ValidationError
    switch {
    case err == nil:
        writeJSON(w, http.StatusOK, engine.NewReport(out))
    case errors.As(err, &ve):
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: ve.Error()})
    case errors.Is(err, engine.ErrAnalysisUnavailable):
        h.log.Error("prices unavailable", "from", route.Origin, "to", route.Destination, "err", err)
        writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Message: "price data is currently unavailable for this route"})
    default:
        h.log.Error("analysis failed", "err", err)
        writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"})
    }
}

// parseRoute reads from, to, startDate, endDate, currency and cabin.
func parseRoute(r *http.Request) (provider.Route, error) {
    q := r.URL.Query()
    route := provider.Route{
        Origin:      strings.TrimSpace(q.Get("from")),
        Destination: strings.TrimSpace(q.Get("to")),
        Currency:    strings.TrimSpace(q.Get("currency")),
    }
    if route.Origin == "" || route.Destination == "" {
        return route, errors.New("from and to are required")
    }
    var err error
    if route.Start, err = parseDay(q.Get("startDate")); err != nil {
        return route, fmt.Errorf("startDate: %w", err)
    }
    if route.End, err = parseDay(q.Get("endDate")); err != nil {
        return route, fmt.Errorf("endDate: %w", err)
    }
    cabin, ok := provider.ParseCabin(q.Get("cabin"))
    if !ok {
        return route, errors.New("cabin must be Economy, Business or First")
    }
    route.Cabin = cabin
    return route, nil
}

func parseDay(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, errors.New("required")
    }
    t, err := time.Parse(provider.DateLayout, s)
    if err != nil {
        return time.Time{}, errors.New("expected YYYY-MM-DD")
    }
    return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}
