package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/models"
)

const (
	SessionKey = "session"
	TokenKey   = "token"
)

// ProtectRoute checks the bearer token and attaches the session and the raw
// token to the request context.
func ProtectRoute(sessions *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - no token provided"))
		}

		token, ok := lib.BearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - malformed token"))
		}

		session, err := sessions.Authenticate(c.UserContext(), token)
		if errors.Is(err, auth.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token"))
		}
		if err != nil {
			lib.LogJSON("error", "authentication failed", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Internal server error"))
		}

		c.Locals(SessionKey, session)
		c.Locals(TokenKey, token)
		return c.Next()
	}
}

// CurrentSession returns the session ProtectRoute attached, or nil.
func CurrentSession(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(SessionKey).(*models.Session)
	return session
}

// CurrentToken returns the bearer token ProtectRoute attached.
func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(TokenKey).(string)
	return token
}
