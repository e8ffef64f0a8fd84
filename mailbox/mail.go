// Package mailbox turns backend records into the models the UI renders:
// list rows, the detail pane, the folder sidebar and pagination.
package mailbox

import (
	"net/mail"
	"strings"

	"labelmail/cleaner"
	"labelmail/models"
	"labelmail/sanitize"
)

// DefaultSeenFlag marks a message as read.
const DefaultSeenFlag = `\Seen`

// Converter maps models.Email to models.Mail.
type Converter struct {
	cleaner       *cleaner.Cleaner
	sanitizer     *sanitize.Sanitizer
	seenFlag      string
	previewLength int
}

// NewConverter wires the preview and body pipelines. An empty seenFlag
// uses DefaultSeenFlag.
func NewConverter(c *cleaner.Cleaner, s *sanitize.Sanitizer, seenFlag string, previewLength int) *Converter {
	if seenFlag == "" {
		seenFlag = DefaultSeenFlag
	}
	if previewLength <= 0 {
		previewLength = cleaner.DefaultPreviewLength
	}
	return &Converter{cleaner: c, sanitizer: s, seenFlag: seenFlag, previewLength: previewLength}
}

// Mail builds a list row. The body is reduced to a preview.
func (cv *Converter) Mail(e models.Email) models.Mail {
	name, address := ParseSender(e.FromAddress)
	date, _ := e.ParsedDate()

	return models.Mail{
		ID:          string(e.UID),
		Name:        name,
		Address:     address,
		To:          e.ToAddresses,
		Subject:     e.Subject,
		Preview:     cv.cleaner.Preview(e.BodyText, e.BodyHTML, cv.previewLength),
		Date:        date,
		Read:        IsRead(e.Labels, cv.seenFlag),
		Labels:      FilterSystemLabels(e.Labels),
		Attachments: e.Attachments,
		MessageID:   e.MessageID,
		InReplyTo:   e.InReplyTo,
		References:  e.References,
		IsThread:    e.IsThread,
	}
}

// Mails converts a page of records.
func (cv *Converter) Mails(emails []models.Email) []models.Mail {
	out := make([]models.Mail, len(emails))
	for i, e := range emails {
		out[i] = cv.Mail(e)
	}
	return out
}

// Detail builds the detail pane model, including the sanitized body.
func (cv *Converter) Detail(e models.Email) models.Mail {
	m := cv.Mail(e)
	m.BodyText = e.BodyText
	m.BodyHTML = e.BodyHTML
	m.SafeHTML = cv.sanitizer.Render(e.BodyHTML, e.BodyText)
	return m
}

// ParseSender splits a From value into display name and address. Without
// a display name the local part of the address is used.
func ParseSender(from string) (name, address string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		address = addr.Address
		name = addr.Name
	} else {
		address = from
	}

	if name == "" {
		if at := strings.Index(address, "@"); at > 0 {
			name = address[:at]
		} else {
			name = address
		}
	}
	return name, address
}

// IsRead reports whether labels contain the seen flag, ignoring case.
func IsRead(labels []string, seenFlag string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, seenFlag) {
			return true
		}
	}
	return false
}

var systemFlags = map[string]bool{
	"SEEN": true, "UNSEEN": true, "ANSWERED": true, "FLAGGED": true,
	"DELETED": true, "DRAFT": true, "RECENT": true,
}

// FilterSystemLabels drops IMAP flags so only user-visible labels remain.
func FilterSystemLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || strings.HasPrefix(l, `\`) || systemFlags[l] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// AddLabel returns labels with label appended unless already present.
func AddLabel(labels []string, label string) []string {
	if HasLabel(labels, label) {
		return labels
	}
	return append(append([]string(nil), labels...), label)
}

// RemoveLabel returns labels without any entry equal to label.
func RemoveLabel(labels []string, label string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !strings.EqualFold(l, label) {
			out = append(out, l)
		}
	}
	return out
}

// HasLabel compares case-insensitively.
func HasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
