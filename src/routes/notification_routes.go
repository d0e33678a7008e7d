package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

func NotificationRoutes(api fiber.Router, h *controllers.Handler, sessions *auth.Service) {
	notification := api.Group("/notifications", middleware.ProtectRoute(sessions))

	notification.Get("/", h.GetUserNotifications)
	notification.Put("/:id/read", h.MarkNotificationAsRead)
}
