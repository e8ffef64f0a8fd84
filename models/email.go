package models

import (
	"bytes"
	"encoding/json"
	"html/template"
	"time"
)

// NoContent is shown when a message has neither a text nor an HTML body.
const NoContent = "(No content)"

// Email is a message record as returned by the label backend.
type Email struct {
	UID         UID          `json:"uid"`
	Subject     string       `json:"subject"`
	FromAddress string       `json:"from_address"`
	ToAddresses []string     `json:"to_addresses"`
	Date        string       `json:"date"`
	BodyText    string       `json:"body_text,omitempty"`
	BodyHTML    string       `json:"body_html,omitempty"`
	Labels      []string     `json:"labels"`
	Attachments []Attachment `json:"attachments"`

	// Threading fields
	MessageID  string `json:"message_id,omitempty"`
	InReplyTo  string `json:"in_reply_to,omitempty"`
	References string `json:"references,omitempty"`
	IsThread   bool   `json:"is_thread,omitempty"`
}

// Attachment represents an email attachment
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UID is a mailbox UID. The backend sends it as a number; routes and
// forms carry it as a string.
type UID string

func (u *UID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = UID(n.String())
	return nil
}

func (u UID) String() string {
	return string(u)
}

// HasThreadLinks reports whether the email carries any reference header.
func (e *Email) HasThreadLinks() bool {
	return e.References != "" || e.InReplyTo != "" || e.MessageID != ""
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// ParsedDate parses Date. The second result is false when the value is
// empty or in an unknown layout.
func (e *Email) ParsedDate() (time.Time, bool) {
	return ParseDate(e.Date)
}

// ParseDate accepts the layouts the backend and common mail headers use.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Mail is the view model rendered in lists and the detail pane.
type Mail struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Address     string        `json:"email"`
	To          []string      `json:"to"`
	Subject     string        `json:"subject"`
	Preview     string        `json:"text"`
	Date        time.Time     `json:"date"`
	Read        bool          `json:"read"`
	Labels      []string      `json:"labels"`
	Attachments []Attachment  `json:"attachments"`
	BodyText    string        `json:"body_text,omitempty"`
	BodyHTML    string        `json:"body_html,omitempty"`
	SafeHTML    template.HTML `json:"-"`

	MessageID  string `json:"message_id,omitempty"`
	InReplyTo  string `json:"in_reply_to,omitempty"`
	References string `json:"references,omitempty"`
	IsThread   bool   `json:"is_thread,omitempty"`
}
