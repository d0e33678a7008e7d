package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

func AuthRoutes(api fiber.Router, h *controllers.Handler, sessions *auth.Service) {
	authGroup := api.Group("/auth")

	authGroup.Post("/signup", h.Signup)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/logout", middleware.ProtectRoute(sessions), h.Logout)
	authGroup.Get("/me", middleware.ProtectRoute(sessions), h.GetCurrentUser)
}
