package logger

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across the module.
// Arguments after msg are alternating keys and values.
type Logger interface {
    Debug(msg string, keysAndValues ...any)
    Info(msg string, keysAndValues ...any)
    Warn(msg string, keysAndValues ...any)
    Error(msg string, keysAndValues ...any)
    Fatal(msg string, keysAndValues ...any)
    With(keysAndValues ...any) Logger
}

type zapLogger struct {
    s *zap.SugaredLogger
}

// New builds a JSON production logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func New(level string) Logger {
    enc := zap.NewProductionEncoderConfig()
    enc.TimeKey = "timestamp"
    enc.EncodeTime = zapcore.ISO8601TimeEncoder

    cfg := zap.NewProductionConfig()
    cfg.EncoderConfig = enc
    if lvl, err := zapcore.ParseLevel(level); err == nil {
        cfg.Level = zap.NewAtomicLevelAt(lvl)
    }

    l, err := cfg.Build()
    if err != nil {
        l = zap.NewExample()
    }
    return &zapLogger{s: l.Sugar()}
}

// NewNop discards everything.
func NewNop() Logger {
    return &zapLogger{s: zap.NewNop().Sugar()}
}

// FromZap adapts an existing zap logger, mostly for tests using zaptest/observer.
func FromZap(l *zap.Logger) Logger {
    return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
    return &zapLogger{s: l.s.With(kv...)}
}
