package api

import (
	"github.com/gofiber/fiber/v2"

	"labelmail/labels"
	"labelmail/models"
	"labelmail/utils"
)

// LabelHandler creates, applies and suggests labels.
type LabelHandler struct {
	*Base
	labels *labels.Service
}

func NewLabelHandler(base *Base, svc *labels.Service) *LabelHandler {
	return &LabelHandler{Base: base, labels: svc}
}

// Add applies :label to :uid.
func (h *LabelHandler) Add(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	uid, label := Param(c, "uid"), Param(c, "label")
	if err := h.labels.Add(c.UserContext(), s.AccessToken, accountID, c.Query("folder"), uid, label); err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "uid": uid, "label": label})
}

// Remove takes :label off :uid.
func (h *LabelHandler) Remove(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	uid, label := Param(c, "uid"), Param(c, "label")
	if err := h.labels.Remove(c.UserContext(), s.AccessToken, accountID, c.Query("folder"), uid, label); err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "uid": uid, "label": label})
}

// Create makes a new label.
func (h *LabelHandler) Create(c *fiber.Ctx) error {
	var req models.CreateLabelRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	label, err := h.labels.Create(c.UserContext(), s.AccessToken, accountID, req)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(label)
}

// Suggest asks the backend which label fits :uid.
func (h *LabelHandler) Suggest(c *fiber.Ctx) error {
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	suggestion, err := h.labels.Suggest(c.UserContext(), s.AccessToken, accountID, c.Query("folder"), Param(c, "uid"))
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(suggestion)
}

type autoLabelRequest struct {
	Folder string   `json:"folder"`
	UIDs   []string `json:"uids"`
}

// AutoLabel suggests and applies labels to a batch of emails.
func (h *LabelHandler) AutoLabel(c *fiber.Ctx) error {
	var req autoLabelRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	s, accountID, err := h.Current(c)
	if err != nil {
		return h.Fail(c, err)
	}
	batch, err := h.labels.AutoLabel(c.UserContext(), s.AccessToken, accountID, req.Folder, req.UIDs)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(batch)
}
