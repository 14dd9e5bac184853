package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("creates with default config", func(t *testing.T) {
		l := New(nil)
		assert.NotNil(t, l)
	})

	t.Run("json format writes structured entries", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{Level: "debug", Format: "json", Output: buf})

		l.Info("team created", zap.String("team_id", "t-1"))
		require.NoError(t, l.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "team created", entry["msg"])
		assert.Equal(t, "t-1", entry["team_id"])
		assert.Equal(t, "info", entry["level"])
	})

	t.Run("console format is not json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{Level: "info", Format: "console", Output: buf})

		l.Info("test message")
		output := buf.String()
		assert.Contains(t, output, "test message")
		assert.False(t, strings.HasPrefix(output, "{"))
	})
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "warn", Format: "json", Output: buf})

	l.Info("dropped")
	l.Warn("kept")

	output := buf.String()
	assert.NotContains(t, output, "dropped")
	assert.Contains(t, output, "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestContextLogger(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		l := zap.NewExample()
		ctx := ContextWithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("falls back to nop", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		l.Info("no panic")
	})
}
