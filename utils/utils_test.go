package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WARN)
	logger.SetOutput(&buf)

	logger.Info("hidden")
	logger.WithFields(map[string]interface{}{"b": 2, "a": 1}).Warn("shown %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 7 [a=1, b=2]")
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DEBUG)
	logger.SetOutput(&buf)
	logger.SetFormat("json")

	logger.WithField("op", "emails").WithField("err", errors.New("boom")).Error("call %s", "failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "call failed", entry["msg"])
	assert.Equal(t, "emails", entry["op"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotEmpty(t, entry["time"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("handler: %w", BadGatewayError("backend failed", cause))

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 502, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "backend failed: boom", appErr.Error())

	_, ok = AsAppError(cause)
	assert.False(t, ok)

	assert.Equal(t, 502, StatusOf(err))
	assert.Equal(t, 500, StatusOf(cause))
	assert.True(t, appErr.ServerSide())
	assert.False(t, NotFoundError("gone", nil).ServerSide())
}

func TestAppErrorFields(t *testing.T) {
	err := GatewayTimeoutError("Backend timed out", errors.New("deadline")).WithContext("op", "search")

	fields := err.Fields()
	assert.Equal(t, 504, fields["status"])
	assert.Equal(t, "deadline", fields["cause"])
	assert.Equal(t, "search", fields["op"])
	assert.NotContains(t, err.Context, "status")
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache[[]string](time.Minute)
	defer cache.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("acct", []string{"INBOX"})
	got, ok := cache.Get("acct")
	require.True(t, ok)
	assert.Equal(t, []string{"INBOX"}, got)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("acct")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewMemoryCache[int](time.Hour)
	defer cache.Close()

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Delete("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)

	cache.Set("acc1|INBOX|0", 3)
	cache.Set("acc1|INBOX|50", 4)
	cache.Set("acc2|INBOX|0", 5)
	assert.Equal(t, 2, cache.DeletePrefix("acc1|"))
	_, ok = cache.Get("acc2|INBOX|0")
	assert.True(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
	cache.Close()
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, "ja", MatchLanguage("", "ja-JP,ja;q=0.9"))
	assert.Equal(t, "en", MatchLanguage("fr"))
	assert.Equal(t, "en", MatchLanguage())
	assert.Equal(t, "ja", MatchLanguage("ja", "en"))
}

func TestTranslateFallsBackToMessageID(t *testing.T) {
	assert.Equal(t, "missing_key", T(nil, "missing_key"))
	assert.Equal(t, "missing_key", T(GetLocalizer("en"), "missing_key"))
}

func TestInitI18n(t *testing.T) {
	require.NoError(t, InitI18n("../locales"))

	assert.Equal(t, "Inbox", T(GetLocalizer("en"), "folder_inbox"))
	assert.Equal(t, "受信トレイ", T(GetLocalizer("ja"), "folder_inbox"))
	assert.Equal(t, "1 message", TPlural(GetLocalizer("en"), "message_count", 1))
	assert.Equal(t, "3 messages", TPlural(GetLocalizer("en"), "message_count", 3))
	assert.Same(t, GetLocalizer("ja"), GetLocalizer("ja"))

	assert.Error(t, InitI18n(t.TempDir()))
}
