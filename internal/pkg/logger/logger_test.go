package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warn "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("sweep finished", "expired", 3)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sweep finished", rec["msg"])
	assert.Equal(t, float64(3), rec["expired"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "debug", "text")
	l.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
