package threading

import (
	"sort"
	"strings"

	"labelmail/models"
)

type container struct {
	mail     *models.Mail
	parent   *container
	children []*container
	order    int
}

// builder links messages by Message-ID lineage, JWZ style.
type builder struct {
	byID  map[string]*container
	all   []*container
	order int
}

func newBuilder() *builder {
	return &builder{byID: make(map[string]*container)}
}

func (b *builder) get(id string) *container {
	if id != "" {
		if c, ok := b.byID[id]; ok {
			return c
		}
	}
	c := &container{order: b.order}
	b.order++
	b.all = append(b.all, c)
	if id != "" {
		b.byID[id] = c
	}
	return c
}

// link makes parent the parent of child unless child already has one or
// the link would create a loop.
func link(parent, child *container) {
	if parent == child || child.parent != nil {
		return
	}
	for p := parent; p != nil; p = p.parent {
		if p == child {
			return
		}
	}
	child.parent = parent
	parent.children = append(parent.children, child)
}

// Group arranges one page of mail into conversations. Messages are linked
// through References and In-Reply-To; remaining roots that share a
// normalized subject are merged. Threads are returned newest first and
// messages inside a thread oldest first.
func Group(mails []models.Mail) []*models.EmailThread {
	b := newBuilder()

	for i := range mails {
		mail := &mails[i]
		c := b.get(mail.MessageID)
		if c.mail != nil {
			// Duplicate Message-ID: keep both messages.
			c = b.get("")
		}
		c.mail = mail

		refs := strings.Fields(mail.References)
		if len(refs) == 0 && mail.InReplyTo != "" {
			refs = []string{mail.InReplyTo}
		}
		var prev *container
		for _, ref := range refs {
			rc := b.get(ref)
			if prev != nil {
				link(prev, rc)
			}
			prev = rc
		}
		if prev != nil {
			link(prev, c)
		}
	}

	var roots []*container
	for _, c := range b.all {
		if c.parent == nil {
			roots = append(roots, c)
		}
	}

	bySubject := make(map[string]*models.EmailThread)
	var threads []*models.EmailThread
	for _, root := range roots {
		var members []models.Mail
		collect(root, &members)
		if len(members) == 0 {
			continue
		}

		subject := NormalizeSubject(members[0].Subject)
		if subject != "" {
			if existing, ok := bySubject[subject]; ok {
				existing.Messages = append(existing.Messages, members...)
				continue
			}
		}

		thread := &models.EmailThread{Messages: members}
		if subject != "" {
			bySubject[subject] = thread
		}
		threads = append(threads, thread)
	}

	for _, thread := range threads {
		finish(thread)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastDate.After(threads[j].LastDate)
	})
	return threads
}

func collect(c *container, out *[]models.Mail) {
	if c.mail != nil {
		*out = append(*out, *c.mail)
	}
	for _, child := range c.children {
		collect(child, out)
	}
}

func finish(thread *models.EmailThread) {
	sort.SliceStable(thread.Messages, func(i, j int) bool {
		return thread.Messages[i].Date.Before(thread.Messages[j].Date)
	})

	first := thread.Messages[0]
	thread.ID = first.MessageID
	if thread.ID == "" {
		thread.ID = first.ID
	}
	thread.Subject = CleanSubject(first.Subject)
	thread.MessageCount = len(thread.Messages)

	seen := make(map[string]bool)
	thread.Participants = thread.Participants[:0]
	for _, msg := range thread.Messages {
		if msg.Address != "" && !seen[msg.Address] {
			seen[msg.Address] = true
			thread.Participants = append(thread.Participants, msg.Address)
		}
		if msg.Date.After(thread.LastDate) {
			thread.LastDate = msg.Date
		}
		if !msg.Read {
			thread.Unread = true
		}
		if len(msg.Attachments) > 0 {
			thread.HasAttachment = true
		}
	}
}

var replyPrefixes = []string{"re:", "fwd:", "fw:", "aw:", "wg:"}

// CleanSubject removes leading reply and forward prefixes, keeping case.
func CleanSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(subject)
		trimmed := false
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(lower, prefix) {
				subject = strings.TrimSpace(subject[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return subject
		}
	}
}

// NormalizeSubject is CleanSubject folded to lower case, used as a
// grouping key.
func NormalizeSubject(subject string) string {
	return strings.ToLower(CleanSubject(subject))
}
