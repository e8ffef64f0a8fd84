// Package labels creates Gmail labels, applies them, and asks the backend
// to suggest one for an email.
package labels

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"labelmail/cleaner"
	"labelmail/models"
	"labelmail/utils"
)

const (
	// MaxSuggestBody bounds the body sent for a suggestion, in runes.
	MaxSuggestBody = 2000
	DefaultWorkers = 4
	MaxBatchEmails = 200
	resultOK       = "ok"
	resultError    = "error"
)

// Backend is the part of the backend client the service calls.
type Backend interface {
	CreateLabel(ctx context.Context, token, accountID string, req models.CreateLabelRequest) (*models.Label, error)
	SuggestLabel(ctx context.Context, token, accountID string, req models.SuggestLabelRequest) (*models.LabelSuggestion, error)
	AddLabel(ctx context.Context, token, accountID, folder, uid, label string) error
	RemoveLabel(ctx context.Context, token, accountID, folder, uid, label string) error
}

// Mailbox finds emails and drops cached listings.
type Mailbox interface {
	Find(ctx context.Context, token, accountID, folder, uid string) (models.Email, error)
	InvalidateFolders(accountID string)
	InvalidatePages(accountID string)
}

// Service runs label operations for the signed-in user.
type Service struct {
	backend Backend
	mailbox Mailbox
	cleaner *cleaner.Cleaner
	workers int
	observe func(result string)
}

// NewService creates a service. workers bounds concurrent auto-labeling.
func NewService(b Backend, m Mailbox, c *cleaner.Cleaner, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{backend: b, mailbox: m, cleaner: c, workers: workers}
}

// OnAutoLabel registers a hook called with "ok" or "error" per email.
func (s *Service) OnAutoLabel(fn func(result string)) {
	s.observe = fn
}

// Create makes a new label with Gmail's default visibility.
func (s *Service) Create(ctx context.Context, token, accountID string, req models.CreateLabelRequest) (*models.Label, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, utils.BadRequestError("Label name is required", nil)
	}
	label, err := s.backend.CreateLabel(ctx, token, accountID, req)
	if err != nil {
		return nil, err
	}
	s.mailbox.InvalidateFolders(accountID)
	return label, nil
}

// Add applies label to uid.
func (s *Service) Add(ctx context.Context, token, accountID, folder, uid, label string) error {
	if strings.TrimSpace(label) == "" {
		return utils.BadRequestError("Label is required", nil)
	}
	if err := s.backend.AddLabel(ctx, token, accountID, folder, uid, label); err != nil {
		return err
	}
	s.mailbox.InvalidatePages(accountID)
	return nil
}

// Remove takes label off uid.
func (s *Service) Remove(ctx context.Context, token, accountID, folder, uid, label string) error {
	if strings.TrimSpace(label) == "" {
		return utils.BadRequestError("Label is required", nil)
	}
	if err := s.backend.RemoveLabel(ctx, token, accountID, folder, uid, label); err != nil {
		return err
	}
	s.mailbox.InvalidatePages(accountID)
	return nil
}

// SuggestRequest builds the suggestion request for e. The body goes
// through the preview cleaner first; an email with nothing left to read
// is a bad request.
func (s *Service) SuggestRequest(e models.Email) (models.SuggestLabelRequest, error) {
	body := s.cleaner.CleanBody(e.BodyText, e.BodyHTML)
	if body == "" || body == models.NoContent {
		return models.SuggestLabelRequest{}, utils.BadRequestError("Email has no content to classify", nil)
	}
	return models.SuggestLabelRequest{
		EmailID: string(e.UID),
		Subject: e.Subject,
		Body:    clip(body, MaxSuggestBody),
	}, nil
}

// Suggest asks the backend for a label for uid.
func (s *Service) Suggest(ctx context.Context, token, accountID, folder, uid string) (*models.LabelSuggestion, error) {
	e, err := s.mailbox.Find(ctx, token, accountID, folder, uid)
	if err != nil {
		return nil, err
	}
	req, err := s.SuggestRequest(e)
	if err != nil {
		return nil, err
	}
	return s.backend.SuggestLabel(ctx, token, accountID, req)
}

// AutoLabel suggests and applies a label to every uid. One failure does
// not stop the others; results keep the order of uids.
func (s *Service) AutoLabel(ctx context.Context, token, accountID, folder string, uids []string) (*models.BatchLabelResult, error) {
	uids = dedupe(uids)
	if len(uids) == 0 {
		return nil, utils.BadRequestError("No emails selected", nil)
	}
	if len(uids) > MaxBatchEmails {
		return nil, utils.BadRequestError("Too many emails selected", nil)
	}

	results := make([]models.LabelResult, len(uids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, uid := range uids {
		g.Go(func() error {
			results[i] = s.autoLabelOne(gctx, token, accountID, folder, uid)
			return nil
		})
	}
	_ = g.Wait()

	batch := &models.BatchLabelResult{Results: results}
	for _, r := range results {
		if r.Error == "" {
			batch.Successful++
		} else {
			batch.Failed++
		}
	}
	if batch.Successful > 0 {
		s.mailbox.InvalidatePages(accountID)
	}
	utils.Log.WithFields(map[string]interface{}{
		"account":    accountID,
		"successful": batch.Successful,
		"failed":     batch.Failed,
	}).Info("Auto-label batch finished")
	return batch, nil
}

func (s *Service) autoLabelOne(ctx context.Context, token, accountID, folder, uid string) models.LabelResult {
	result := models.LabelResult{UID: uid}
	defer func() {
		if s.observe == nil {
			return
		}
		if result.Error == "" {
			s.observe(resultOK)
		} else {
			s.observe(resultError)
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	suggestion, err := s.Suggest(ctx, token, accountID, folder, uid)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if suggestion.Label == "" {
		result.Error = "no label suggested"
		return result
	}

	result.Label = suggestion.Label
	result.Reason = suggestion.Reason
	if err := s.backend.AddLabel(ctx, token, accountID, folder, uid, suggestion.Label); err != nil {
		result.Error = err.Error()
	}
	return result
}

// clip cuts s to at most max runes.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func dedupe(uids []string) []string {
	seen := make(map[string]bool, len(uids))
	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, uid)
	}
	return out
}
