// Package threading reconstructs email conversations from reference
// headers, either by querying the mailbox (Resolver) or by grouping an
// already fetched page (Group).
package threading

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"labelmail/models"
)

// DefaultSearchLimit bounds the thread search when no limit is configured.
const DefaultSearchLimit = 100

// Searcher runs a Gmail-style search in one folder of an account.
type Searcher interface {
	Search(ctx context.Context, accountID, query, folder string, limit int) ([]models.Email, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, accountID, query, folder string, limit int) ([]models.Email, error)

func (f SearcherFunc) Search(ctx context.Context, accountID, query, folder string, limit int) ([]models.Email, error) {
	return f(ctx, accountID, query, folder, limit)
}

// Resolver finds the conversation an email belongs to.
type Resolver struct {
	searcher Searcher
	limit    int
}

// NewResolver creates a resolver. A non-positive limit uses DefaultSearchLimit.
func NewResolver(searcher Searcher, limit int) *Resolver {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &Resolver{searcher: searcher, limit: limit}
}

// Resolve returns the thread of target, oldest first. Emails without any
// reference header that are not flagged as threaded resolve to themselves
// without a search. Search errors are returned wrapped; no partial thread
// is produced.
func (r *Resolver) Resolve(ctx context.Context, accountID, folder string, target models.Email) ([]models.Email, error) {
	if !target.IsThread && !target.HasThreadLinks() {
		return []models.Email{target}, nil
	}

	query := BuildQuery(target)
	if query == "" {
		return []models.Email{target}, nil
	}

	found, err := r.searcher.Search(ctx, accountID, query, folder, r.limit)
	if err != nil {
		return nil, fmt.Errorf("search thread of %s: %w", target.UID, err)
	}

	thread := make([]models.Email, 0, len(found)+1)
	seen := make(map[models.UID]bool, len(found)+1)
	for _, email := range found {
		if email.UID != "" && seen[email.UID] {
			continue
		}
		seen[email.UID] = true
		thread = append(thread, email)
	}
	if !seen[target.UID] {
		thread = append(thread, target)
	}

	SortByDate(thread)
	return thread, nil
}

// BuildQuery composes the search query for target's thread. Every id in
// References is matched; otherwise In-Reply-To, then Message-ID, then the
// exact subject.
func BuildQuery(target models.Email) string {
	if ids := strings.Fields(target.References); len(ids) > 0 {
		terms := make([]string, len(ids))
		for i, id := range ids {
			terms[i] = "rfc822msgid:" + id
		}
		return strings.Join(terms, " OR ")
	}
	if id := strings.TrimSpace(target.InReplyTo); id != "" {
		return "rfc822msgid:" + id
	}
	if id := strings.TrimSpace(target.MessageID); id != "" {
		return "rfc822msgid:" + id
	}
	if target.Subject != "" {
		return `subject:"` + strings.ReplaceAll(target.Subject, `"`, `\"`) + `"`
	}
	return ""
}

// SortByDate orders emails oldest first, keeping input order on ties.
// Unparseable dates sort as the zero time.
func SortByDate(emails []models.Email) {
	keys := make([]time.Time, len(emails))
	for i := range emails {
		keys[i], _ = emails[i].ParsedDate()
	}
	idx := make([]int, len(emails))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Before(keys[idx[b]])
	})

	sorted := make([]models.Email, len(emails))
	for i, j := range idx {
		sorted[i] = emails[j]
	}
	copy(emails, sorted)
}
