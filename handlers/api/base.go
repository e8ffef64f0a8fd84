// Package api holds the JSON endpoints and the helpers the web handlers
// share with them.
package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"labelmail/backend"
	"labelmail/mailbox"
	"labelmail/middleware"
	"labelmail/models"
	"labelmail/session"
	"labelmail/utils"
)

// ErrNoAccount means the user has not connected a usable Gmail account.
var ErrNoAccount = errors.New("no connected Gmail account")

// AccountLister lists the Gmail accounts of a user.
type AccountLister interface {
	GmailAccounts(ctx context.Context, token string) ([]models.GmailAccount, error)
}

// Base resolves the working account of a request and maps backend errors.
type Base struct {
	Sessions *session.Manager
	Accounts AccountLister
}

// Current returns the session and the account the request works in. The
// first active account is picked and remembered when none is set.
func (b *Base) Current(c *fiber.Ctx) (*session.Session, string, error) {
	s := middleware.CurrentSession(c)
	if s == nil {
		return nil, "", utils.UnauthorizedError("Authentication required", session.ErrNoSession)
	}
	if s.AccountID != "" {
		return s, s.AccountID, nil
	}

	accounts, err := b.Accounts.GmailAccounts(c.UserContext(), s.AccessToken)
	if err != nil {
		return nil, "", b.Fail(c, err)
	}
	id := PickAccount(accounts)
	if id == "" {
		return s, "", ErrNoAccount
	}
	if err := b.Sessions.SetAccount(c, id); err != nil {
		utils.Log.Warn("Failed to remember account %s: %v", id, err)
	}
	s.AccountID = id
	return s, id, nil
}

// PickAccount returns the id of the first active account.
func PickAccount(accounts []models.GmailAccount) string {
	for i := range accounts {
		if accounts[i].Active() {
			return accounts[i].ID
		}
	}
	return ""
}

// Fail turns err into an AppError. A refused token also ends the session.
func (b *Base) Fail(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr
	}

	switch {
	case backend.IsUnauthorized(err):
		if clearErr := b.Sessions.Clear(c); clearErr != nil {
			utils.Log.Warn("Failed to clear session: %v", clearErr)
		}
		return utils.UnauthorizedError("Session expired, please sign in again", err)
	case errors.Is(err, ErrNoAccount):
		return utils.NotFoundError("Connect a Gmail account first", err)
	case errors.Is(err, mailbox.ErrEmailNotFound), errors.Is(err, backend.ErrNotFound):
		return utils.NotFoundError("Email not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return utils.GatewayTimeoutError("Backend timed out", err)
	}

	switch status := backend.StatusOf(err); {
	case status == fiber.StatusBadRequest, status == fiber.StatusUnprocessableEntity:
		var apiErr *backend.APIError
		errors.As(err, &apiErr)
		return utils.BadRequestError(apiErr.Detail, err)
	case status == fiber.StatusForbidden:
		return utils.ForbiddenError("Not allowed", err)
	case status != 0:
		return utils.BadGatewayError("Backend request failed", err)
	}
	return utils.InternalServerError("Unexpected error", err)
}

// Param returns a path parameter with its escaping removed.
func Param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
