package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/api/handlers"
	"github.com/voxchat/voxchat-backend/internal/api/middleware"
	"github.com/voxchat/voxchat-backend/internal/services"
	"github.com/voxchat/voxchat-backend/internal/store"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services, st *store.Store, log *logrus.Logger) {
	app.Use("/api", middleware.DefaultRateLimit())

	// Text analysis and completion endpoints
	app.Post("/api/analyze", handlers.Analyze(svc))
	app.Post("/api/chat", middleware.CompletionRateLimit(), handlers.Chat(svc))
	app.Post("/api/summarize", middleware.CompletionRateLimit(), handlers.Summarize(svc))

	// Conversation store
	api := app.Group("/api/v1")
	conversationHandlers := handlers.NewConversationHandlers(st)
	api.Get("/conversations", conversationHandlers.List)
	api.Post("/conversations", conversationHandlers.Save)
	api.Get("/conversations/search", conversationHandlers.Search)
	api.Get("/conversations/export", conversationHandlers.Export)
	api.Get("/conversations/:id", conversationHandlers.Get)
	api.Delete("/conversations/:id", conversationHandlers.Delete)
	api.Delete("/conversations", conversationHandlers.DeleteAll)

	// Realtime voice channel
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/voice", websocket.New(handlers.Voice(svc, log)))

	// Health check
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "voxchat-backend",
		})
	})
}
