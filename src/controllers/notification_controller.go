package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

// GetUserNotifications lists the authenticated account's notifications, newest first
func (h *Handler) GetUserNotifications(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	notifications, err := h.notifier.List(c.UserContext(), session.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(notifications)
}

// MarkNotificationAsRead marks one of the account's notifications as read
func (h *Handler) MarkNotificationAsRead(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	if err := h.notifier.MarkRead(c.UserContext(), c.Params("id"), session.AccountID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification marked as read"))
}
