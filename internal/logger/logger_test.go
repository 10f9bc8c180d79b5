package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", true)

	log.Info("dropped")
	log.Warn("kept", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "...", Truncate("abcdef", 2))
	assert.Equal(t, "ção...", Truncate("çãoçãoção", 6))
}

func TestUpdateAttrs(t *testing.T) {
	update := &models.Update{
		ID: 10,
		Message: &models.Message{
			ID:   5,
			Chat: models.Chat{ID: -100},
			From: &models.User{ID: 7, Username: "alice"},
			Text: "$ROULETTE is going to send",
		},
	}

	attrs := updateAttrs(update)
	got := map[string]any{}
	for i := 0; i+1 < len(attrs); i += 2 {
		got[attrs[i].(string)] = attrs[i+1]
	}

	assert.Equal(t, "message", got["update_type"])
	assert.Equal(t, int64(-100), got["chat_id"])
	assert.Equal(t, int64(7), got["user_id"])
	assert.Equal(t, "alice", got["username"])

	other := updateAttrs(&models.Update{ID: 11})
	assert.Contains(t, other, "other")
}
