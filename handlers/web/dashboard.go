package web

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"labelmail/backend"
	"labelmail/handlers/api"
	"labelmail/mailbox"
	"labelmail/middleware"
	"labelmail/models"
	"labelmail/threading"
	"labelmail/utils"
	"labelmail/viewstate"
)

// Connector starts the flow that connects a Gmail account.
type Connector interface {
	GmailConnectURL(ctx context.Context, token string) (*models.GmailConnect, error)
}

type DashboardHandler struct {
	*api.Base
	mail      *mailbox.Service
	connector Connector
}

func NewDashboardHandler(base *api.Base, mail *mailbox.Service, connector Connector) *DashboardHandler {
	return &DashboardHandler{Base: base, mail: mail, connector: connector}
}

// Inbox renders /dashboard.
func (h *DashboardHandler) Inbox(c *fiber.Ctx) error {
	return h.folderPage(c, mailbox.KindInbox.Href(), mailbox.KindInbox)
}

// System renders /dashboard/:kind for the fixed Gmail folders.
func (h *DashboardHandler) System(c *fiber.Ctx) error {
	kind, ok := mailbox.ParseKind(c.Params("kind"))
	if !ok {
		return utils.NotFoundError("Folder not found", nil)
	}
	return h.folderPage(c, kind.Href(), kind)
}

// Label renders /dashboard/folder/:name.
func (h *DashboardHandler) Label(c *fiber.Ctx) error {
	return h.folderPage(c, mailbox.FolderHref(api.Param(c, "name")), "")
}

func (h *DashboardHandler) folderPage(c *fiber.Ctx, route string, kind mailbox.Kind) error {
	s, accountID, err := h.Current(c)
	if errors.Is(err, api.ErrNoAccount) {
		return h.connect(c)
	}
	if err != nil {
		return h.Fail(c, err)
	}
	ctx := c.UserContext()

	folder := h.mail.ResolveFolder(ctx, s.AccessToken, accountID, route)
	offset := c.QueryInt("offset", 0)

	result, err := h.mail.Page(ctx, s.AccessToken, accountID, folder, offset)
	if backend.IsUnauthorized(err) {
		return h.Fail(c, err)
	}
	if err != nil {
		utils.Log.Error("Failed to load %s: %v", folder, err)
	}
	state := viewstate.FromResult(result, err, func(p *models.EmailPage) bool {
		return p == nil || len(p.Emails) == 0
	})

	threaded := c.Query("view") == "threaded"
	var threads []*models.EmailThread
	if threaded && state.IsReady() {
		threads = threading.Group(state.Data.Emails)
	}

	data := fiber.Map{
		"Folder":      folder,
		"Kind":        string(kind),
		"Route":       route,
		"Page":        state,
		"Threads":     threads,
		"Threaded":    threaded,
		"EscapedName": url.QueryEscape(folder),
	}

	if middleware.IsHTMX(c) {
		return partial(c, "partials/email_list", page(c, folder, data))
	}

	tree, err := h.mail.Tree(ctx, s.AccessToken, accountID)
	if err != nil {
		utils.Log.Warn("Failed to load folders: %v", err)
	}
	data["Tree"] = tree
	data["ActiveRoute"] = route
	return c.Render("dashboard", page(c, folder, data))
}

// Email renders one email together with its conversation.
func (h *DashboardHandler) Email(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if errors.Is(err, api.ErrNoAccount) {
		return h.connect(c)
	}
	if err != nil {
		return h.Fail(c, err)
	}
	ctx := c.UserContext()
	folder := c.Query("folder")
	if folder == "" {
		folder = backend.DefaultFolder
	}

	target, err := h.mail.Find(ctx, s.AccessToken, accountID, folder, api.Param(c, "uid"))
	if err != nil {
		return h.Fail(c, err)
	}

	messages, err := h.mail.Thread(ctx, s.AccessToken, accountID, folder, target)
	if backend.IsUnauthorized(err) {
		return h.Fail(c, err)
	}
	thread := viewstate.FromSlice(messages, err)

	data := fiber.Map{
		"Mail":        h.mail.Converter().Detail(target),
		"Thread":      thread,
		"Folder":      folder,
		"EscapedName": url.QueryEscape(folder),
	}

	if middleware.IsHTMX(c) {
		return partial(c, "partials/email_view", page(c, target.Subject, data))
	}

	tree, err := h.mail.Tree(ctx, s.AccessToken, accountID)
	if err != nil {
		utils.Log.Warn("Failed to load folders: %v", err)
	}
	data["Tree"] = tree
	data["ActiveRoute"] = activeRoute(tree, folder)
	return c.Render("email", page(c, target.Subject, data))
}

// activeRoute is the sidebar entry of folder, or "" when it is not listed.
func activeRoute(tree models.FolderTree, folder string) string {
	for _, list := range [][]models.MappedFolder{tree.System, tree.Custom} {
		for _, f := range list {
			if f.Name == folder {
				return f.Href
			}
		}
	}
	return ""
}

// connect renders the page asking the user to connect Gmail.
func (h *DashboardHandler) connect(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	data := fiber.Map{}
	if s != nil {
		conn, err := h.connector.GmailConnectURL(c.UserContext(), s.AccessToken)
		if backend.IsUnauthorized(err) {
			return h.Fail(c, err)
		}
		if err != nil {
			utils.Log.Error("Failed to get Gmail connect URL: %v", err)
		} else {
			data["ConnectURL"] = conn.AuthorizationURL
		}
	}
	return c.Render("connect", page(c, "Connect Gmail", data))
}
