package storage

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ fiber.Storage = (*SessionStore)(nil)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	db, err := InitDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSessionStore(db, 0)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("abc", []byte("payload"), 0))
	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, s.Delete("abc"))
	got, err = s.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreIgnoresEmpty(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("", []byte("x"), 0))
	require.NoError(t, s.Set("k", nil, 0))
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreExpiry(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set("short", []byte("1"), time.Minute))
	require.NoError(t, s.Set("long", []byte("2"), time.Hour))
	require.NoError(t, s.Set("forever", []byte("3"), 0))

	now = now.Add(2 * time.Minute)

	got, err := s.Get("short")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get("long")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	removed, err := s.GC()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err = s.Get("forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

func TestSessionStoreReset(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Reset())

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("b", []byte("2"), 0))
	got, err = s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
