package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Out: &buf})

	log.Info("hidden")
	log.Warn("shown", slog.String("component", "test"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "component=test")
}

func TestNewTrace(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "trace", Out: &buf})

	log.Log(context.Background(), LevelTrace, "raw line")
	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kxirc.log")
	var buf bytes.Buffer
	log := New(Options{Level: "info", Out: &buf, File: path})

	log.Info("connected", slog.String("server", "irc.example.org:6697"))

	assert.Contains(t, buf.String(), "msg=connected")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "connected", entry["msg"])
	assert.Equal(t, "irc.example.org:6697", entry["server"])
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("nothing")
	})
}
