package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToWriter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := ToWriter(zap.New(core), zapcore.InfoLevel)

	n, err := fmt.Fprintln(w, "[GIN-debug] GET /health")
	require.NoError(t, err)
	assert.Equal(t, len("[GIN-debug] GET /health\n"), n)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[GIN-debug] GET /health", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestToWriter_BelowLevelDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := ToWriter(zap.New(core), zapcore.DebugLevel)
	_, _ = w.Write([]byte("noise\n"))
	assert.Zero(t, logs.Len())
}

func TestBuild_FallsBackToInfo(t *testing.T) {
	l, flush := Build(Options{Level: "loud"})
	defer flush()
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}
