package api

import (
	"github.com/gofiber/fiber/v2"

	"labelmail/mailbox"
)

// FolderHandler serves the sidebar.
type FolderHandler struct {
	*Base
	mail *mailbox.Service
}

func NewFolderHandler(base *Base, mail *mailbox.Service) *FolderHandler {
	return &FolderHandler{Base: base, mail: mail}
}

// List returns the system folders and custom labels of the account.
func (h *FolderHandler) List(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	tree, err := h.mail.Tree(c.UserContext(), s.AccessToken, accountID)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(tree)
}
