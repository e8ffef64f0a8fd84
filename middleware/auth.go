package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"labelmail/session"
	"labelmail/utils"
)

const sessionLocal = "session"

// IsAPIRequest reports whether the caller expects JSON or an HTMX
// fragment instead of a full page.
func IsAPIRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}
	if IsHTMX(c) {
		return true
	}
	path := c.Path()
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") != ""
}

// RequireAuth loads the session or turns the guest away: pages are
// redirected to /auth, htmx gets an HX-Redirect and the API a 401.
func RequireAuth(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := sessions.Load(c)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				utils.Log.Error("Failed to load session: %v", err)
			}
			switch {
			case IsHTMX(c):
				c.Set("HX-Redirect", "/auth")
				return c.SendStatus(fiber.StatusUnauthorized)
			case IsAPIRequest(c):
				return utils.UnauthorizedError("Authentication required", err)
			default:
				return c.Redirect("/auth")
			}
		}

		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

// RequireGuest sends signed-in users to the dashboard.
func RequireGuest(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s, err := sessions.Load(c); err == nil && s != nil {
			return c.Redirect("/dashboard")
		}
		return c.Next()
	}
}

// CurrentSession returns the session stored by RequireAuth.
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionLocal).(*session.Session)
	return s
}
