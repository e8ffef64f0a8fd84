package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"labelmail/models"
)

const (
	DefaultFolder = "INBOX"
	DefaultLimit  = 50
	MaxLimit      = 200
)

// EmailsQuery selects one page of a folder.
type EmailsQuery struct {
	Folder    string
	Limit     int
	Offset    int
	SinceDate string // YYYY-MM-DD
}

func (q EmailsQuery) values() url.Values {
	v := url.Values{}
	v.Set("folder", folderOrDefault(q.Folder))
	v.Set("limit", strconv.Itoa(clampLimit(q.Limit)))
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	} else {
		v.Set("offset", "0")
	}
	if q.SinceDate != "" {
		v.Set("since_date", q.SinceDate)
	}
	return v
}

func folderOrDefault(folder string) string {
	if folder == "" {
		return DefaultFolder
	}
	return folder
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func accountPath(accountID string, rest ...string) string {
	p := "/api/gmail/accounts/" + url.PathEscape(accountID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// GmailConnectURL starts the flow that connects a Gmail account.
func (c *Client) GmailConnectURL(ctx context.Context, token string) (*models.GmailConnect, error) {
	var resp models.GmailConnect
	if err := c.do(ctx, request{
		op:     "gmail_connect",
		method: fasthttp.MethodGet,
		path:   "/api/gmail/connect",
		token:  token,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GmailAccounts lists the accounts connected by the user.
func (c *Client) GmailAccounts(ctx context.Context, token string) ([]models.GmailAccount, error) {
	var resp struct {
		Accounts []models.GmailAccount `json:"accounts"`
	}
	if err := c.do(ctx, request{
		op:     "gmail_accounts",
		method: fasthttp.MethodGet,
		path:   "/api/gmail/accounts",
		token:  token,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// Folders lists the folders and labels of an account.
func (c *Client) Folders(ctx context.Context, token, accountID string) ([]models.Folder, error) {
	var folders []models.Folder
	if err := c.do(ctx, request{
		op:     "folders",
		method: fasthttp.MethodGet,
		path:   accountPath(accountID, "folders"),
		token:  token,
	}, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Emails fetches one page of a folder, newest first.
func (c *Client) Emails(ctx context.Context, token, accountID string, q EmailsQuery) ([]models.Email, error) {
	var emails []models.Email
	if err := c.do(ctx, request{
		op:     "emails",
		method: fasthttp.MethodGet,
		path:   accountPath(accountID, "emails"),
		query:  q.values(),
		token:  token,
	}, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// Search runs a Gmail search query in one folder.
func (c *Client) Search(ctx context.Context, token, accountID, query, folder string, limit int) ([]models.Email, error) {
	v := url.Values{}
	v.Set("query", query)
	v.Set("folder", folderOrDefault(folder))
	v.Set("limit", strconv.Itoa(clampLimit(limit)))

	var emails []models.Email
	if err := c.do(ctx, request{
		op:     "search",
		method: fasthttp.MethodGet,
		path:   accountPath(accountID, "search"),
		query:  v,
		token:  token,
	}, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func folderQuery(folder string) url.Values {
	v := url.Values{}
	v.Set("folder", folderOrDefault(folder))
	return v
}

// AddLabel applies label to the email uid in folder.
func (c *Client) AddLabel(ctx context.Context, token, accountID, folder, uid, label string) error {
	return c.do(ctx, request{
		op:     "add_label",
		method: fasthttp.MethodPost,
		path:   accountPath(accountID, "emails", uid, "labels", label),
		query:  folderQuery(folder),
		token:  token,
	}, nil)
}

// RemoveLabel removes label from the email uid in folder.
func (c *Client) RemoveLabel(ctx context.Context, token, accountID, folder, uid, label string) error {
	return c.do(ctx, request{
		op:     "remove_label",
		method: fasthttp.MethodDelete,
		path:   accountPath(accountID, "emails", uid, "labels", label),
		query:  folderQuery(folder),
		token:  token,
	}, nil)
}

// DeleteEmail deletes the email uid from folder.
func (c *Client) DeleteEmail(ctx context.Context, token, accountID, folder, uid string) error {
	return c.do(ctx, request{
		op:     "delete_email",
		method: fasthttp.MethodDelete,
		path:   accountPath(accountID, "emails", uid),
		query:  folderQuery(folder),
		token:  token,
	}, nil)
}

// CreateLabel creates a Gmail label. Empty visibilities take Gmail's
// defaults.
func (c *Client) CreateLabel(ctx context.Context, token, accountID string, req models.CreateLabelRequest) (*models.Label, error) {
	if req.LabelListVisibility == "" {
		req.LabelListVisibility = "labelShow"
	}
	if req.MessageListVisibility == "" {
		req.MessageListVisibility = "show"
	}

	var label models.Label
	if err := c.do(ctx, request{
		op:     "create_label",
		method: fasthttp.MethodPost,
		path:   accountPath(accountID, "labels"),
		token:  token,
		body:   req,
	}, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// SuggestLabel asks the backend which label fits an email.
func (c *Client) SuggestLabel(ctx context.Context, token, accountID string, req models.SuggestLabelRequest) (*models.LabelSuggestion, error) {
	var suggestion models.LabelSuggestion
	if err := c.do(ctx, request{
		op:     "suggest_label",
		method: fasthttp.MethodPost,
		path:   accountPath(accountID, "emails", "suggest-label"),
		token:  token,
		body:   req,
	}, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}
