package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
)

// Options tunes route registration.
type Options struct {
	PostsPerMinute int
}

// Register mounts every route under /api/v1.
func Register(app *fiber.App, h *controllers.Handler, sessions *auth.Service, opts Options) {
	api := app.Group("/api/v1")

	api.Get("/status", h.GetStatus)
	AuthRoutes(api, h, sessions)
	PostRoutes(api, h, sessions, opts.PostsPerMinute)
	UserRoutes(api, h, sessions)
	NotificationRoutes(api, h, sessions)
}
