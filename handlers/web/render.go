// Package web renders the HTML pages.
package web

import (
	"github.com/gofiber/fiber/v2"

	"labelmail/middleware"
)

// Page is the common data every page template receives.
func page(c *fiber.Ctx, title string, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	data["Lang"] = c.Locals("lang")
	data["CSRFToken"] = middleware.CSRFToken(c)
	if s := middleware.CurrentSession(c); s != nil {
		data["User"] = s.User
	}
	return data
}

// partial renders name without the layout.
func partial(c *fiber.Ctx, name string, data fiber.Map) error {
	return c.Render(name, data, "")
}
