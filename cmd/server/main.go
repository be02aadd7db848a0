package main

import (
    "compress/gzip"
    "context"
    "errors"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "fareadvisor/internal/bootstrap"
    "fareadvisor/internal/config"
    "fareadvisor/internal/logger"
    "fareadvisor/internal/metrics"
)

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    log := logger.New(cfg.Server.LogLevel)
    if err != nil { log.Fatal("config", "err", err) }

    app, err := bootstrap.Build(cfg, log)
    if err != nil { log.Fatal("bootstrap", "err", err) }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    app.Janitors(ctx, time.Minute)

    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           newMux(app.Engine, app.Metrics, timeout, log),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      timeout + 10*time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info("server listening", "addr", srv.Addr)
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal("server", "err", err)
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    log.Info("server stopped")
}

func newMux(an Analyzer, reg *metrics.Registry, timeout time.Duration, log logger.Logger) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.Handle("/metrics", reg.Handler())
    mux.Handle("/api/flights/prices", withCORS(withGzip(recoverPanic(&pricesHandler{engine: an, timeout: timeout, log: log}, log))))
    return mux
}

func withCORS(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses the response when the client accepts gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) { return g.Writer.Write(b) }

func recoverPanic(next http.Handler, log logger.Logger) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                log.Error("handler panic", "path", r.URL.Path, "panic", rec)
                writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"})
            }
        }()
        next.ServeHTTP(w, r)
    })
}
