package api

import (
	"github.com/gofiber/fiber/v2"

	"labelmail/utils"
)

// clientMessages are the keys the browser scripts translate.
var clientMessages = []string{
	"label_added",
	"label_removed",
	"label_created",
	"label_suggested",
	"auto_label_done",
	"message_deleted",
	"message_error",
	"message_connection_error",
	"confirm_delete_email",
	"confirm_yes",
	"confirm_no",
	"email_loading",
	"email_no_messages",
	"error_network",
	"error_404",
	"error_500",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for the client-side JavaScript
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := utils.MatchLanguage(c.Params("lang"))
	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(translations)
}
