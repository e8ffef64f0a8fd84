package labels

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelmail/cleaner"
	"labelmail/models"
	"labelmail/utils"
)

type fakeBackend struct {
	mu       sync.Mutex
	created  []models.CreateLabelRequest
	suggests []models.SuggestLabelRequest
	added    map[string]string
	removed  []string
	failUID  string
	addErr   error
}

func (f *fakeBackend) CreateLabel(ctx context.Context, token, accountID string, req models.CreateLabelRequest) (*models.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &models.Label{ID: "Label_1", Name: req.Name}, nil
}

func (f *fakeBackend) SuggestLabel(ctx context.Context, token, accountID string, req models.SuggestLabelRequest) (*models.LabelSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggests = append(f.suggests, req)
	if req.EmailID == f.failUID {
		return nil, errors.New("suggestion failed")
	}
	return &models.LabelSuggestion{ID: "Label_1", Label: "Work", Reason: "mentions a meeting"}, nil
}

func (f *fakeBackend) AddLabel(ctx context.Context, token, accountID, folder, uid, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	if f.added == nil {
		f.added = map[string]string{}
	}
	f.added[uid] = label
	return nil
}

func (f *fakeBackend) RemoveLabel(ctx context.Context, token, accountID, folder, uid, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, uid+":"+label)
	return nil
}

type fakeMailbox struct {
	mu                sync.Mutex
	emails            map[string]models.Email
	folderInvalidated int
	pageInvalidated   int
}

func (m *fakeMailbox) Find(ctx context.Context, token, accountID, folder, uid string) (models.Email, error) {
	e, ok := m.emails[uid]
	if !ok {
		return models.Email{}, errors.New("email not found")
	}
	return e, nil
}

func (m *fakeMailbox) InvalidateFolders(accountID string) {
	m.mu.Lock()
	m.folderInvalidated++
	m.mu.Unlock()
}

func (m *fakeMailbox) InvalidatePages(accountID string) {
	m.mu.Lock()
	m.pageInvalidated++
	m.mu.Unlock()
}

func newTestService() (*Service, *fakeBackend, *fakeMailbox) {
	b := &fakeBackend{}
	m := &fakeMailbox{emails: map[string]models.Email{
		"1": {UID: "1", Subject: "Meeting", BodyText: "See you at 10.\n\n--\nAnn"},
		"2": {UID: "2", Subject: "Report", BodyHTML: "<p>Numbers attached</p>"},
		"3": {UID: "3", Subject: "Empty"},
	}}
	return NewService(b, m, cleaner.New(cleaner.Options{}), 2), b, m
}

func TestCreate(t *testing.T) {
	s, b, m := newTestService()

	label, err := s.Create(context.Background(), "tok", "acc", models.CreateLabelRequest{Name: "  Work  "})
	require.NoError(t, err)
	assert.Equal(t, "Work", label.Name)
	assert.Equal(t, "Work", b.created[0].Name)
	assert.Equal(t, 1, m.folderInvalidated)

	_, err = s.Create(context.Background(), "tok", "acc", models.CreateLabelRequest{Name: " "})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
	assert.Len(t, b.created, 1)
}

func TestAddRemove(t *testing.T) {
	s, b, m := newTestService()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "tok", "acc", "INBOX", "1", "Work"))
	require.NoError(t, s.Remove(ctx, "tok", "acc", "INBOX", "1", "Work"))
	assert.Equal(t, "Work", b.added["1"])
	assert.Equal(t, []string{"1:Work"}, b.removed)
	assert.Equal(t, 2, m.pageInvalidated)

	assert.Error(t, s.Add(ctx, "tok", "acc", "INBOX", "1", ""))
}

func TestSuggestRequest(t *testing.T) {
	s, _, _ := newTestService()

	req, err := s.SuggestRequest(models.Email{UID: "1", Subject: "Meeting", BodyText: "See you at 10.\n\n--\nAnn"})
	require.NoError(t, err)
	assert.Equal(t, "1", req.EmailID)
	assert.Equal(t, "See you at 10.", req.Body)

	req, err = s.SuggestRequest(models.Email{UID: "2", BodyHTML: "<p>Numbers attached</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Numbers attached", req.Body)

	_, err = s.SuggestRequest(models.Email{UID: "3"})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)

	long := strings.Repeat("é", MaxSuggestBody+50)
	req, err = s.SuggestRequest(models.Email{UID: "4", BodyText: long})
	require.NoError(t, err)
	assert.Equal(t, MaxSuggestBody, len([]rune(req.Body)))
}

func TestSuggestEmptyBodyNeverReachesBackend(t *testing.T) {
	s, b, _ := newTestService()

	_, err := s.Suggest(context.Background(), "tok", "acc", "INBOX", "3")
	assert.Error(t, err)
	assert.Empty(t, b.suggests)
}

func TestAutoLabel(t *testing.T) {
	s, b, m := newTestService()
	b.failUID = "2"
	var mu sync.Mutex
	observed := map[string]int{}
	s.OnAutoLabel(func(result string) {
		mu.Lock()
		observed[result]++
		mu.Unlock()
	})

	batch, err := s.AutoLabel(context.Background(), "tok", "acc", "INBOX", []string{"1", "2", "3", "1", "404"})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Successful)
	assert.Equal(t, 3, batch.Failed)
	require.Len(t, batch.Results, 4)
	assert.Equal(t, []string{"1", "2", "3", "404"}, []string{
		batch.Results[0].UID, batch.Results[1].UID, batch.Results[2].UID, batch.Results[3].UID,
	})
	assert.Equal(t, "Work", batch.Results[0].Label)
	assert.Equal(t, "mentions a meeting", batch.Results[0].Reason)
	assert.Contains(t, batch.Results[1].Error, "suggestion failed")
	assert.NotEmpty(t, batch.Results[2].Error)
	assert.Equal(t, map[string]string{"1": "Work"}, b.added)
	assert.Equal(t, 1, m.pageInvalidated)
	assert.Equal(t, map[string]int{"ok": 1, "error": 3}, observed)
}

func TestAutoLabelApplyFailure(t *testing.T) {
	s, b, m := newTestService()
	b.addErr = errors.New("gmail refused")

	batch, err := s.AutoLabel(context.Background(), "tok", "acc", "INBOX", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Successful)
	assert.Equal(t, "Work", batch.Results[0].Label)
	assert.Contains(t, batch.Results[0].Error, "gmail refused")
	assert.Equal(t, 0, m.pageInvalidated)
}

func TestAutoLabelValidation(t *testing.T) {
	s, _, _ := newTestService()

	_, err := s.AutoLabel(context.Background(), "tok", "acc", "INBOX", []string{" ", ""})
	assert.Error(t, err)

	many := make([]string, MaxBatchEmails+1)
	for i := range many {
		many[i] = strings.Repeat("x", i+1)
	}
	_, err = s.AutoLabel(context.Background(), "tok", "acc", "INBOX", many)
	assert.Error(t, err)
}

func TestAutoLabelCanceled(t *testing.T) {
	s, b, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := s.AutoLabel(ctx, "tok", "acc", "INBOX", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Failed)
	assert.Empty(t, b.suggests)
}
