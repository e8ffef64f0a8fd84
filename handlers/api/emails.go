package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"labelmail/cleaner"
	"labelmail/mailbox"
	"labelmail/models"
	"labelmail/sanitize"
	"labelmail/utils"
)

// EmailHandler serves folder listings, threads and deletion.
type EmailHandler struct {
	*Base
	mail    *mailbox.Service
	deleter Deleter
}

// Deleter removes an email.
type Deleter interface {
	DeleteEmail(ctx context.Context, token, accountID, folder, uid string) error
}

func NewEmailHandler(base *Base, mail *mailbox.Service, deleter Deleter) *EmailHandler {
	return &EmailHandler{Base: base, mail: mail, deleter: deleter}
}

// List returns one page of a folder. With ?view=threaded the page is
// grouped into conversations.
func (h *EmailHandler) List(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	folder := c.Query("folder")
	offset := c.QueryInt("offset", 0)

	if c.Query("view") == "threaded" {
		threads, page, err := h.mail.Threads(c.UserContext(), s.AccessToken, accountID, folder, offset)
		if err != nil {
			return h.Fail(c, err)
		}
		return c.JSON(fiber.Map{
			"threads":     threads,
			"folder":      page.Folder,
			"offset":      page.Offset,
			"next_offset": page.NextOffset,
			"has_more":    page.HasMore,
		})
	}

	page, err := h.mail.Page(c.UserContext(), s.AccessToken, accountID, folder, offset)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(page)
}

// Thread returns the conversation of :uid, oldest first.
func (h *EmailHandler) Thread(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	folder := c.Query("folder")
	ctx := c.UserContext()

	target, err := h.mail.Find(ctx, s.AccessToken, accountID, folder, Param(c, "uid"))
	if err != nil {
		return h.Fail(c, err)
	}
	messages, err := h.mail.Thread(ctx, s.AccessToken, accountID, folder, target)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(fiber.Map{
		"uid":      string(target.UID),
		"count":    len(messages),
		"messages": messages,
	})
}

// Delete removes :uid from ?folder.
func (h *EmailHandler) Delete(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	if err := h.deleter.DeleteEmail(c.UserContext(), s.AccessToken, accountID, c.Query("folder"), Param(c, "uid")); err != nil {
		return h.Fail(c, err)
	}
	h.mail.InvalidatePages(accountID)
	return c.JSON(fiber.Map{"success": true})
}

// PreviewHandler runs the cleaning and sanitizing pipelines on a posted
// body, without any backend call.
type PreviewHandler struct {
	cleaner   *cleaner.Cleaner
	sanitizer *sanitize.Sanitizer
}

func NewPreviewHandler(c *cleaner.Cleaner, s *sanitize.Sanitizer) *PreviewHandler {
	return &PreviewHandler{cleaner: c, sanitizer: s}
}

type previewRequest struct {
	BodyText  string `json:"body_text"`
	BodyHTML  string `json:"body_html"`
	MaxLength int    `json:"max_length"`
}

func (h *PreviewHandler) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	body := h.cleaner.CleanBody(req.BodyText, req.BodyHTML)
	return c.JSON(fiber.Map{
		"preview":   h.cleaner.Preview(req.BodyText, req.BodyHTML, req.MaxLength),
		"body":      body,
		"safe_html": h.sanitizer.Body(req.BodyHTML, req.BodyText),
		"empty":     body == models.NoContent,
	})
}
