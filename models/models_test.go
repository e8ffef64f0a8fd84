package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailDecodesBackendRecord(t *testing.T) {
	raw := `{
		"uid": 1042,
		"subject": "Hi",
		"from_address": "Ann <ann@example.com>",
		"to_addresses": ["me@example.com"],
		"date": "2024-03-01T09:30:00+00:00",
		"body_text": null,
		"body_html": "<p>Hi</p>",
		"labels": ["Work"],
		"attachments": [{"filename": "a.pdf", "content_type": "application/pdf", "size": 12}],
		"message_id": "<m@x>",
		"in_reply_to": null,
		"references": "<a@x> <b@x>",
		"is_thread": true
	}`

	var e Email
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, UID("1042"), e.UID)
	assert.Empty(t, e.BodyText)
	assert.Equal(t, "<a@x> <b@x>", e.References)
	assert.True(t, e.IsThread)
	assert.True(t, e.HasThreadLinks())
	assert.Equal(t, int64(12), e.Attachments[0].Size)

	date, ok := e.ParsedDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), date.UTC())
}

func TestUIDAcceptsStrings(t *testing.T) {
	var e Email
	require.NoError(t, json.Unmarshal([]byte(`{"uid": "77"}`), &e))
	assert.Equal(t, "77", e.UID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"uid": null}`), &e))
	assert.Equal(t, UID(""), e.UID)

	assert.Error(t, json.Unmarshal([]byte(`{"uid": true}`), &e))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"2024-03-01T09:30:00Z",
		"2024-03-01T09:30:00.123456",
		"Fri, 01 Mar 2024 09:30:00 +0000",
		"Fri, 1 Mar 2024 09:30:00 +0000",
	} {
		_, ok := ParseDate(s)
		assert.True(t, ok, s)
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestAuthResponseToken(t *testing.T) {
	assert.Equal(t, "jwt", (&AuthResponse{JWTToken: "jwt", AccessToken: "acc"}).Token())
	assert.Equal(t, "acc", (&AuthResponse{AccessToken: "acc"}).Token())

	u := &User{Email: "ann@example.com"}
	assert.Equal(t, "ann@example.com", u.DisplayName())
}

func TestEmailPage(t *testing.T) {
	page := NewEmailPage(nil, "INBOX", 0, 50, 50, true)
	assert.NotNil(t, page.Emails)

	thread := &EmailThread{}
	assert.Nil(t, thread.Latest())
}
