package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/voxchat/voxchat-backend/internal/conversation"
	"github.com/voxchat/voxchat-backend/internal/store"
)

// ConversationHandlers serves the transcript store over REST.
type ConversationHandlers struct {
	store *store.Store
}

func NewConversationHandlers(st *store.Store) *ConversationHandlers {
	return &ConversationHandlers{store: st}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandlers) List(c *fiber.Ctx) error {
	records, err := h.store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list conversations",
		})
	}
	return c.JSON(fiber.Map{
		"conversations": records,
		"count":         len(records),
	})
}

// Search handles GET /api/v1/conversations/search?q=
func (h *ConversationHandlers) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter q is required",
		})
	}

	records, err := h.store.Search(c.Context(), query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search conversations",
		})
	}
	return c.JSON(fiber.Map{
		"conversations": records,
		"count":         len(records),
	})
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandlers) Get(c *fiber.Ctx) error {
	record, err := h.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation",
		})
	}
	return c.JSON(record)
}

// Save handles POST /api/v1/conversations
func (h *ConversationHandlers) Save(c *fiber.Ctx) error {
	var record conversation.Record
	if err := c.BodyParser(&record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if record.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Conversation ID is required",
		})
	}

	if err := h.store.Save(c.Context(), &record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save conversation",
		})
	}
	return c.JSON(record)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandlers) Delete(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Deletion requires confirm=true",
		})
	}

	err := h.store.Delete(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete conversation",
		})
	}
	return c.JSON(fiber.Map{
		"deleted": true,
	})
}

// DeleteAll handles DELETE /api/v1/conversations
func (h *ConversationHandlers) DeleteAll(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Deletion requires confirm=true",
		})
	}

	if err := h.store.DeleteAll(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete conversations",
		})
	}
	return c.JSON(fiber.Map{
		"deleted": true,
	})
}

// Export handles GET /api/v1/conversations/export
func (h *ConversationHandlers) Export(c *fiber.Ctx) error {
	records, err := h.store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export conversations",
		})
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="conversations.json"`)
	return c.JSON(conversation.NewArchive(records))
}
