package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxchat/voxchat-backend/internal/providers"
	"github.com/voxchat/voxchat-backend/internal/services"
)

// Summarize handles POST /api/summarize
func Summarize(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Messages  []providers.Message `json:"messages"`
			MaxLength int                 `json:"maxLength"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if req.MaxLength <= 0 {
			req.MaxLength = 50
		}

		summary, err := svc.Summarize.Summarize(c.Context(), req.Messages, req.MaxLength)
		if err != nil || summary == "" {
			// Degraded response; clients fall back to their own titles.
			return c.JSON(fiber.Map{
				"summary": "Conversation recorded",
			})
		}

		return c.JSON(fiber.Map{
			"summary": summary,
		})
	}
}
