package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

func UserRoutes(api fiber.Router, h *controllers.Handler, sessions *auth.Service) {
	user := api.Group("/users", middleware.ProtectRoute(sessions))

	user.Get("/:id/profile", h.GetProfile)
	user.Put("/push-token", h.RegisterPushToken)
}
