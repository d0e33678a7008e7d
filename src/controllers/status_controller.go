package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/feed"
)

// GetStatus reports whether the feed mirror is live
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	view := h.mirror.View()
	status := fiber.StatusOK
	if view.Status != feed.StatusReady {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"feed":      view.Status,
		"postCount": len(view.Posts),
		"error":     errString(view.Err),
	})
}
