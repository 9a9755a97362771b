package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxchat/voxchat-backend/internal/services"
)

// Analyze handles POST /api/analyze
func Analyze(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		return c.JSON(svc.Analyzer.Analyze(req.Text))
	}
}
