package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"labelmail/utils"
)

const langCookie = "lang"

// LocaleMiddleware picks the language from ?lang=, the lang cookie or
// Accept-Language, in that order. An explicit ?lang= is remembered.
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("lang")
		lang := utils.MatchLanguage(query, c.Cookies(langCookie), c.Get(fiber.HeaderAcceptLanguage))

		if query != "" {
			c.Cookie(&fiber.Cookie{
				Name:     langCookie,
				Value:    lang,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}
