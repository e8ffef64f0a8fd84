package threading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelmail/models"
)

type searchCall struct {
	accountID, query, folder string
	limit                    int
}

type fakeSearcher struct {
	calls   []searchCall
	results []models.Email
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, accountID, query, folder string, limit int) ([]models.Email, error) {
	f.calls = append(f.calls, searchCall{accountID, query, folder, limit})
	return f.results, f.err
}

func uids(emails []models.Email) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = string(e.UID)
	}
	return out
}

func TestResolveSingletonWithoutLinks(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewResolver(searcher, 0)

	target := models.Email{UID: "7", Subject: "Hello"}
	thread, err := r.Resolve(context.Background(), "acct", "INBOX", target)

	require.NoError(t, err)
	assert.Equal(t, []models.Email{target}, thread)
	assert.Empty(t, searcher.calls)
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		email models.Email
		want  string
	}{
		{
			name:  "references",
			email: models.Email{References: "<a@x> <b@x>", InReplyTo: "<b@x>", MessageID: "<c@x>"},
			want:  "rfc822msgid:<a@x> OR rfc822msgid:<b@x>",
		},
		{
			name:  "references with extra whitespace",
			email: models.Email{References: "  <a@x>\n\t<b@x> "},
			want:  "rfc822msgid:<a@x> OR rfc822msgid:<b@x>",
		},
		{
			name:  "in reply to",
			email: models.Email{InReplyTo: "<b@x>", MessageID: "<c@x>"},
			want:  "rfc822msgid:<b@x>",
		},
		{
			name:  "message id",
			email: models.Email{MessageID: "<c@x>"},
			want:  "rfc822msgid:<c@x>",
		},
		{
			name:  "subject fallback",
			email: models.Email{Subject: "Quarterly report", IsThread: true},
			want:  `subject:"Quarterly report"`,
		},
		{
			name:  "nothing to match",
			email: models.Email{IsThread: true},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.email))
		})
	}
}

func TestResolveSearchesFolderWithLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewResolver(searcher, 100)

	target := models.Email{UID: "3", References: "<a@x> <b@x>", Date: "2024-01-01T00:00:00Z"}
	_, err := r.Resolve(context.Background(), "acct-1", "[Gmail]/Sent Mail", target)
	require.NoError(t, err)

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, searchCall{
		accountID: "acct-1",
		query:     "rfc822msgid:<a@x> OR rfc822msgid:<b@x>",
		folder:    "[Gmail]/Sent Mail",
		limit:     100,
	}, searcher.calls[0])
}

func TestResolveSortsAscendingByDate(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Email{
		{UID: "1", Date: "2024-03-01T00:00:00Z"},
		{UID: "2", Date: "2024-01-01T00:00:00Z"},
		{UID: "3", Date: "2024-02-01T00:00:00Z"},
	}}
	r := NewResolver(searcher, 0)

	thread, err := r.Resolve(context.Background(), "acct", "INBOX", models.Email{UID: "1", MessageID: "<m@x>", Date: "2024-03-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1"}, uids(thread))
}

func TestResolveStableOnTies(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Email{
		{UID: "b", Date: "2024-01-01T00:00:00Z"},
		{UID: "a", Date: "2024-01-01T00:00:00Z"},
		{UID: "c", Date: "not a date"},
	}}
	r := NewResolver(searcher, 0)

	thread, err := r.Resolve(context.Background(), "acct", "INBOX", models.Email{UID: "b", InReplyTo: "<p@x>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, uids(thread))
}

func TestResolveAppendsMissingTargetOnce(t *testing.T) {
	target := models.Email{UID: "9", MessageID: "<t@x>", Date: "2024-05-01T00:00:00Z"}

	searcher := &fakeSearcher{results: []models.Email{{UID: "4", Date: "2024-04-01T00:00:00Z"}}}
	thread, err := NewResolver(searcher, 0).Resolve(context.Background(), "acct", "INBOX", target)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "9"}, uids(thread))

	searcher.results = []models.Email{target, {UID: "4", Date: "2024-04-01T00:00:00Z"}, target}
	thread, err = NewResolver(searcher, 0).Resolve(context.Background(), "acct", "INBOX", target)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "9"}, uids(thread))
}

func TestResolveIsIdempotent(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Email{
		{UID: "2", Date: "2024-02-01T00:00:00Z"},
		{UID: "1", Date: "2024-01-01T00:00:00Z"},
	}}
	r := NewResolver(searcher, 0)
	target := models.Email{UID: "2", References: "<a@x>"}

	first, err := r.Resolve(context.Background(), "acct", "INBOX", target)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "acct", "INBOX", target)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolvePropagatesSearchError(t *testing.T) {
	cause := errors.New("backend unavailable")
	searcher := &fakeSearcher{err: cause, results: []models.Email{{UID: "1"}}}

	thread, err := NewResolver(searcher, 0).Resolve(context.Background(), "acct", "INBOX", models.Email{UID: "1", IsThread: true, Subject: "x"})
	assert.Nil(t, thread)
	assert.ErrorIs(t, err, cause)
}

func TestSearcherFunc(t *testing.T) {
	var gotQuery string
	fn := SearcherFunc(func(_ context.Context, _, query, _ string, _ int) ([]models.Email, error) {
		gotQuery = query
		return nil, nil
	})

	thread, err := NewResolver(fn, 0).Resolve(context.Background(), "acct", "INBOX", models.Email{UID: "1", InReplyTo: "<r@x>"})
	require.NoError(t, err)
	assert.Equal(t, "rfc822msgid:<r@x>", gotQuery)
	assert.Equal(t, []string{"1"}, uids(thread))
}
