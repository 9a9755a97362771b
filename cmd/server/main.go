package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/api"
	"github.com/voxchat/voxchat-backend/internal/config"
	"github.com/voxchat/voxchat-backend/internal/conversation"
	"github.com/voxchat/voxchat-backend/internal/providers"
	"github.com/voxchat/voxchat-backend/internal/providers/ollama"
	"github.com/voxchat/voxchat-backend/internal/services"
	"github.com/voxchat/voxchat-backend/internal/speech"
	"github.com/voxchat/voxchat-backend/internal/store"
	"github.com/voxchat/voxchat-backend/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLog := logrus.New()
	appLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize completion provider
	provider, err := ollama.NewProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model)
	if err != nil {
		log.Fatal("Failed to initialize Ollama provider:", err)
	}

	// Initialize services. Speech engines are stubs until a real
	// recognition backend is configured.
	svc := services.NewServices(
		cfg,
		provider,
		&speech.StubRecognizer{Transcript: "Hello, how can I help you?"},
		&speech.StubSynthesizer{SampleRate: cfg.Voice.SampleRate},
	)

	// Open the transcript store. Titles are generated in-process; the
	// server never calls its own HTTP surface.
	titler := summary.NewGenerator(
		&providerSummarizer{svc: svc.Summarize},
		cfg.Summary.MaxTitleLength,
		cfg.Summary.MaxMessages,
		appLog,
	)
	st, err := store.Open(cfg.Store.Path, titler, cfg.Store.MaxConversations, cfg.Summary.RefreshEvery, appLog)
	if err != nil {
		log.Fatal("Failed to open conversation store:", err)
	}
	defer st.Close()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "VoxChat Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: getOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Setup routes
	api.SetupRoutes(app, svc, st, appLog)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLog.WithField("addr", addr).Info("VoxChat backend starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// providerSummarizer adapts the in-process summarize service to the title
// generator, which speaks conversation messages.
type providerSummarizer struct {
	svc *services.SummarizeService
}

func (p *providerSummarizer) Summarize(ctx context.Context, messages []conversation.Message, maxLength int) (string, error) {
	converted := make([]providers.Message, len(messages))
	for i, msg := range messages {
		converted[i] = providers.Message{Role: msg.Role, Content: msg.Content}
	}
	return p.svc.Summarize(ctx, converted, maxLength)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("VOXCHAT_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:3000,http://localhost:5173"
	}
	return origins
}
