package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestJSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.With(String("component", "scoring")).Info("ranking computed",
		Int("tokens", 3),
		Float64("top_score", 71.25),
		Duration("duration_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ranking computed", entry["message"])
	assert.Equal(t, "scoring", entry["component"])
	assert.EqualValues(t, 3, entry["tokens"])
	assert.EqualValues(t, 71.25, entry["top_score"])
	assert.EqualValues(t, 1500, entry["duration_ms"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error("ignored", String("k", "v"))
	})
}
