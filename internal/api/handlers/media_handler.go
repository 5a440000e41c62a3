package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sagarpkr/multipost/internal/media"
	"github.com/sagarpkr/multipost/internal/transfer"
)

type MediaHandler struct {
	s *media.Store
}

func NewMediaHandler(store *media.Store) *MediaHandler {
	return &MediaHandler{s: store}
}

func (h *MediaHandler) RegisterMedia(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var mr transfer.MediaRegistration
	if err := c.BodyParser(&mr); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	id, err := h.s.Register(c.Context(), userID, &mr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	userId := GetUserID(c)

	attachments, err := h.s.ListByUserID(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list media",
		})
	}

	return c.Status(fiber.StatusOK).JSON(attachments)
}
