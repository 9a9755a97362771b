package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxchat/voxchat-backend/internal/providers"
	"github.com/voxchat/voxchat-backend/internal/services"
)

// Chat handles POST /api/chat
func Chat(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Messages    []providers.Message `json:"messages"`
			Temperature float32             `json:"temperature"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if len(req.Messages) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Messages are required",
			})
		}
		if req.Temperature <= 0 {
			req.Temperature = 0.7
		}

		response, err := svc.Chat.Chat(c.Context(), req.Messages, req.Temperature)
		if err != nil {
			// The runtime being down is the common failure here.
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Failed to get response from Ollama. Make sure Ollama is running.",
			})
		}

		return c.JSON(fiber.Map{
			"response": response,
		})
	}
}
