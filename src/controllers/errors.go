package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/notify"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feed.ErrEmptyPost), errors.Is(err, feed.ErrImageTooLarge):
		return fiber.StatusBadRequest
	case errors.Is(err, feed.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, feed.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, feed.ErrPostNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, notify.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, feed.ErrUploadFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, feed.ErrSubscription):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError answers with the status for err. Server-side failures are
// logged and their detail is kept out of the response.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status >= fiber.StatusInternalServerError {
		lib.LogJSON("error", "request failed", map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"status": status,
			"error":  err.Error(),
		})
		if status == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
	}
	return c.Status(status).JSON(lib.MessageResponse(message))
}
