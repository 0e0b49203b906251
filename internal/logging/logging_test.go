package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFileOutputCarriesRequestID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "csvscope.log")
	logger, closer, err := New("debug", "json", path)
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-1")
	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello", slog.Int("rows", 3))
	logger.Debug("plain")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "test", rec["component"])
	assert.EqualValues(t, 3, rec["rows"])
}

func TestLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closer, err := New("warn", "text", path)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestUnknownFormat(t *testing.T) {
	_, _, err := New("info", "xml", "stderr")
	assert.Error(t, err)
}
