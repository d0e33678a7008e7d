package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

// PostRoutes sets up the feed, the live stream, creation, likes and deletion
func PostRoutes(api fiber.Router, h *controllers.Handler, sessions *auth.Service, postsPerMinute int) {
	post := api.Group("/posts", middleware.ProtectRoute(sessions))

	if postsPerMinute <= 0 {
		postsPerMinute = 10
	}
	createLimit := middleware.RateLimit(postsPerMinute, postsPerMinute)
	ready := middleware.ReadinessCheck(h.Mirror().Ready)

	post.Get("/", h.GetFeedPosts)
	post.Get("/stream", h.StreamPosts)
	post.Post("/", createLimit, h.CreatePost)
	post.Post("/:id/like", ready, h.LikePost)
	post.Delete("/:id", h.DeletePost)
}
