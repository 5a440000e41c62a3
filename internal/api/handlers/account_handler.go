package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sagarpkr/multipost/internal/accounts"
)

type AccountHandler struct {
	s *accounts.Registry
}

func NewAccountHandler(registry *accounts.Registry) *AccountHandler {
	return &AccountHandler{s: registry}
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userId := GetUserID(c)

	list, err := h.s.ListAll(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(list)
}

func (h *AccountHandler) RevokeSocialAccount(c *fiber.Ctx) error {
	userId := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	acc, err := h.s.GetByID(c.Context(), int64(accountId))
	if err != nil || acc == nil || acc.UserID != userId {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account doesn't exist",
		})
	}

	if err := h.s.Revoke(c.Context(), int64(accountId)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to revoke account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userId := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userId, int64(accountId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to remove account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
