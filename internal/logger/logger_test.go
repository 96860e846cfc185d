package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger checks that named loggers and key-values travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), NewWithWriter(&buf, zapcore.DebugLevel))
	ctx = WithName(ctx, "updater")
	ctx = WithKV(ctx, "run_id", "abc")

	InfoKV(ctx, "Step finished", "step", "upgrade")

	out := buf.String()
	require.Contains(t, out, "updater")
	require.Contains(t, out, "Step finished")
	require.Contains(t, out, "abc")
	require.Contains(t, out, "upgrade")
}

// TestFromContextFallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestSetLevelNameRejectsUnknown leaves the level untouched on bad input.
func TestSetLevelNameRejectsUnknown(t *testing.T) {
	t.Parallel()

	before := Level()
	require.ErrorIs(t, SetLevelName("verbose"), errUnknownLevel)
	require.Equal(t, before, Level())
}

// TestLevelHelpers writes through every level helper of the context logger.
func TestLevelHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), NewWithWriter(&buf, zapcore.DebugLevel))

	DebugKV(ctx, "debug entry", "k", 1)
	Info(ctx, "info entry")
	WarnKV(ctx, "warn entry", "k", 2)
	ErrorKV(ctx, "error entry", "k", 3)

	out := buf.String()
	for _, msg := range []string{"debug entry", "info entry", "warn entry", "error entry"} {
		require.Contains(t, out, msg)
	}
}
