package models

import "time"

// EmailThread is a conversation grouped for the threaded list view.
type EmailThread struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Participants  []string  `json:"participants"`
	MessageCount  int       `json:"message_count"`
	LastDate      time.Time `json:"last_date"`
	Messages      []Mail    `json:"messages"`
	Unread        bool      `json:"unread"`
	HasAttachment bool      `json:"has_attachment"`
}

// Latest returns the most recent message, or nil for an empty thread.
func (t *EmailThread) Latest() *Mail {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}
