package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{" WARN ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
		{"fatal", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewConsoleHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "warn", Console: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("high concurrency", zap.Int("concurrency", 600))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "high concurrency")
	assert.Contains(t, out, "600")
}

func TestNewQuietWithoutFileIsNop(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Quiet: true, Console: &buf})
	require.NoError(t, err)

	logger.Error("dropped")
	require.NoError(t, closeFn())

	assert.Empty(t, buf.String())
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratecheck.log")
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "debug", File: path, Quiet: true, Console: &buf})
	require.NoError(t, err)

	logger.Debug("attempt failed", zap.String("url", "http://example.com"))
	require.NoError(t, closeFn())

	assert.Empty(t, buf.String(), "quiet suppresses console output")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "attempt failed", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "http://example.com", entry["url"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}
