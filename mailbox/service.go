package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"labelmail/backend"
	"labelmail/models"
	"labelmail/threading"
	"labelmail/utils"
)

// ErrEmailNotFound is returned when a uid is not in the first MaxPages
// pages of a folder.
var ErrEmailNotFound = errors.New("email not found")

// Source is the part of the backend the mailbox reads from.
type Source interface {
	Folders(ctx context.Context, token, accountID string) ([]models.Folder, error)
	Emails(ctx context.Context, token, accountID string, q backend.EmailsQuery) ([]models.Email, error)
	Searcher(token string) threading.Searcher
}

// ServiceOptions configures a Service. Zero values take defaults.
type ServiceOptions struct {
	Pager             Pager
	CacheTTL          time.Duration
	ThreadSearchLimit int
	DefaultFolder     string
}

// Service loads folders and pages for one signed-in user at a time and
// caches them per account.
type Service struct {
	src       Source
	conv      *Converter
	pager     Pager
	limit     int
	defFolder string

	folders *utils.MemoryCache[[]models.Folder]
	pages   *utils.MemoryCache[[]models.Email]
}

func NewService(src Source, conv *Converter, opts ServiceOptions) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 2 * time.Minute
	}
	if opts.DefaultFolder == "" {
		opts.DefaultFolder = backend.DefaultFolder
	}
	return &Service{
		src:       src,
		conv:      conv,
		pager:     NewPager(opts.Pager.Limit, opts.Pager.MaxPages),
		limit:     opts.ThreadSearchLimit,
		defFolder: opts.DefaultFolder,
		folders:   utils.NewMemoryCache[[]models.Folder](opts.CacheTTL),
		pages:     utils.NewMemoryCache[[]models.Email](opts.CacheTTL),
	}
}

// Close stops the cache janitors.
func (s *Service) Close() {
	s.folders.Close()
	s.pages.Close()
}

// Converter returns the converter used for list rows and details.
func (s *Service) Converter() *Converter {
	return s.conv
}

// Pager returns the pagination settings.
func (s *Service) Pager() Pager {
	return s.pager
}

// Folders returns the folders of an account, cached.
func (s *Service) Folders(ctx context.Context, token, accountID string) ([]models.Folder, error) {
	if cached, ok := s.folders.Get(accountID); ok {
		return cached, nil
	}
	folders, err := s.src.Folders(ctx, token, accountID)
	if err != nil {
		return nil, err
	}
	s.folders.Set(accountID, folders)
	return folders, nil
}

// Tree returns the sidebar of an account.
func (s *Service) Tree(ctx context.Context, token, accountID string) (models.FolderTree, error) {
	folders, err := s.Folders(ctx, token, accountID)
	if err != nil {
		return models.FolderTree{}, err
	}
	return MapFolders(folders), nil
}

// ResolveFolder maps a dashboard route to a mailbox name. A failed folder
// lookup falls back to Gmail's default names.
func (s *Service) ResolveFolder(ctx context.Context, token, accountID, route string) string {
	folders, err := s.Folders(ctx, token, accountID)
	if err != nil {
		utils.Log.Warn("Folder lookup for %s failed, using defaults: %v", route, err)
	}
	return FolderForRoute(route, folders)
}

// InvalidateFolders drops the cached folder list of an account.
func (s *Service) InvalidateFolders(accountID string) {
	s.folders.Delete(accountID)
}

// InvalidatePages drops every cached page of an account.
func (s *Service) InvalidatePages(accountID string) {
	s.pages.DeletePrefix(accountID + "|")
}

func pageKey(accountID, folder string, offset int) string {
	return accountID + "|" + folder + "|" + strconv.Itoa(offset)
}

// rawPage fetches the page at offset of folder, cached.
func (s *Service) rawPage(ctx context.Context, token, accountID, folder string, offset int) ([]models.Email, error) {
	key := pageKey(accountID, folder, offset)
	if cached, ok := s.pages.Get(key); ok {
		return cached, nil
	}
	emails, err := s.src.Emails(ctx, token, accountID, backend.EmailsQuery{
		Folder: folder,
		Limit:  s.pager.Limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	s.pages.Set(key, emails)
	return emails, nil
}

// Page returns the converted page at offset.
func (s *Service) Page(ctx context.Context, token, accountID, folder string, offset int) (*models.EmailPage, error) {
	if folder == "" {
		folder = s.defFolder
	}
	if offset < 0 {
		offset = 0
	}
	emails, err := s.rawPage(ctx, token, accountID, folder, offset)
	if err != nil {
		return nil, err
	}
	next, more := s.pager.Next(s.pager.PageOf(offset), len(emails))
	return models.NewEmailPage(s.conv.Mails(emails), folder, offset, s.pager.Limit, next, more), nil
}

// Threads groups the page at offset into conversations.
func (s *Service) Threads(ctx context.Context, token, accountID, folder string, offset int) ([]*models.EmailThread, *models.EmailPage, error) {
	page, err := s.Page(ctx, token, accountID, folder, offset)
	if err != nil {
		return nil, nil, err
	}
	return threading.Group(page.Emails), page, nil
}

// Find locates uid in folder by walking its pages. There is no
// single-message endpoint, so the walk stops at MaxPages.
func (s *Service) Find(ctx context.Context, token, accountID, folder, uid string) (models.Email, error) {
	if folder == "" {
		folder = s.defFolder
	}
	offset, loaded := 0, 0
	for {
		emails, err := s.rawPage(ctx, token, accountID, folder, offset)
		if err != nil {
			return models.Email{}, err
		}
		loaded++
		for _, e := range emails {
			if string(e.UID) == uid {
				return e, nil
			}
		}
		next, ok := s.pager.Next(loaded, len(emails))
		if !ok {
			return models.Email{}, fmt.Errorf("%w: uid %s in %s", ErrEmailNotFound, uid, folder)
		}
		offset = next
	}
}

// Thread resolves the conversation of target, oldest first, as detail
// models.
func (s *Service) Thread(ctx context.Context, token, accountID, folder string, target models.Email) ([]models.Mail, error) {
	if folder == "" {
		folder = s.defFolder
	}
	resolver := threading.NewResolver(s.src.Searcher(token), s.limit)
	emails, err := resolver.Resolve(ctx, accountID, folder, target)
	if err != nil {
		return nil, err
	}
	out := make([]models.Mail, len(emails))
	for i, e := range emails {
		out[i] = s.conv.Detail(e)
	}
	return out, nil
}
