package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/lib"
)

// ReadinessCheck answers 503 while ready reports false.
func ReadinessCheck(ready func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ready() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(lib.MessageResponse("Feed is still connecting to the document store"))
		}

		return c.Next()
	}
}
