package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestParseFormat verifies format parsing and the console default.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	format, ok := ParseFormat("")
	require.True(t, ok)
	require.Equal(t, FormatConsole, format)

	format, ok = ParseFormat(" JSON ")
	require.True(t, ok)
	require.Equal(t, FormatJSON, format)

	_, ok = ParseFormat("xml")
	require.False(t, ok)
}

// TestContextLogger verifies that named loggers travel through the context.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	ctx := WithName(context.Background(), "condition-server")
	require.NotSame(t, Logger(), FromContext(ctx))

	named := FromContext(ctx)
	ctx = WithKV(ctx, "alarm", "boiler/temperature")
	require.NotSame(t, named, FromContext(ctx))
}
