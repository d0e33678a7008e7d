package controllers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/middleware"
)

// GetFeedPosts returns the server's live view of the global feed. While the
// mirror is between subscriptions it answers 503 with the last good posts.
func (h *Handler) GetFeedPosts(c *fiber.Ctx) error {
	view := h.mirror.View()
	switch view.Status {
	case feed.StatusFailed:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Feed is temporarily unavailable",
			"status":  view.Status,
			"posts":   view.Posts,
		})
	case feed.StatusLoading:
		return c.Status(fiber.StatusServiceUnavailable).JSON(lib.MessageResponse("Feed is still connecting to the document store"))
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// CreatePost creates a post from a multipart form with "content" and an
// optional "image" file
func (h *Handler) CreatePost(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	draft := feed.Draft{Text: c.FormValue("content")}

	fileHeader, err := c.FormFile("image")
	if err == nil {
		img, file, err := openUpload(fileHeader)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Could not read image"))
		}
		defer file.Close()
		draft.Image = img
	}

	id, err := h.posts.CreatePost(c.UserContext(), draft, session)
	if err != nil {
		return respondError(c, err)
	}

	lib.LogJSON("info", "post created", map[string]interface{}{
		"post_id":   id,
		"author":    session.AccountID,
		"has_image": draft.Image != nil,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      id,
		"message": "Post created successfully",
	})
}

func openUpload(fh *multipart.FileHeader) (*feed.Image, multipart.File, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = feed.ContentTypeFor(fh.Filename)
	}
	return &feed.Image{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        file,
	}, file, nil
}

// LikePost toggles the authenticated account's like on a post
func (h *Handler) LikePost(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	postID := c.Params("id")

	sub := h.mirror.Subscription()
	if sub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(lib.MessageResponse("Feed is still loading"))
	}

	post, _ := sub.Post(postID)

	action, err := sub.ToggleLike(c.UserContext(), postID, session)
	if err != nil {
		return respondError(c, err)
	}

	if action == feed.LikeAdded && h.notifier != nil {
		h.notifier.PostLikedAsync(post, session)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"action": action,
		"postId": postID,
	})
}

// DeletePost deletes a post. The store only lets the author delete it.
func (h *Handler) DeletePost(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)

	if err := h.posts.DeletePost(c.UserContext(), c.Params("id"), session.AccountID); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Post deleted successfully"))
}
