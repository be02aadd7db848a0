package logger

import (
    "testing"

    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
    t.Parallel()

    core, logs := observer.New(zapcore.DebugLevel)
    l := FromZap(zap.New(core)).With("request_id", "abc")

    l.Info("fetched", "provider", "amadeus")
    l.Debug("detail")

    entries := logs.All()
    require.Len(t, entries, 2)
    require.Equal(t, "fetched", entries[0].Message)
    ctx := entries[0].ContextMap()
    require.Equal(t, "abc", ctx["request_id"])
    require.Equal(t, "amadeus", ctx["provider"])
}

func TestNewAndNop(t *testing.T) {
    t.Parallel()

    require.NotNil(t, New("debug"))
    require.NotNil(t, New("bogus"))
    n := NewNop()
    n.Warn("ignored", "k", 1)
    require.NotNil(t, n.With("k", "v"))
}
