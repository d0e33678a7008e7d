package controllers

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/middleware"
	"github.com/theleywin/Framez-Backend/src/models"
)

const previewLength = 140

type profileResponse struct {
	User      models.UserDto    `json:"user"`
	Initials  string            `json:"initials"`
	PostCount int               `json:"postCount"`
	View      string            `json:"view"`
	Posts     []models.Post     `json:"posts,omitempty"`
	Items     []models.GridItem `json:"items,omitempty"`
}

// GetProfile returns a user's header data and posts, as a grid (default) or
// as a feed
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID := c.Params("id")
	mode := c.Query("view", "grid")
	if mode != "grid" && mode != "feed" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("view must be grid or feed"))
	}

	user, err := h.users.FindByID(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}

	posts, err := h.posts.Fetch(c.UserContext(), feed.Filter{AuthorID: userID})
	if err != nil {
		return respondError(c, err)
	}

	resp := profileResponse{
		User: models.UserDto{
			ID:          user.Id.Hex(),
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		Initials:  Initials(user.DisplayName),
		PostCount: len(posts),
		View:      mode,
	}
	if mode == "grid" {
		resp.Items = GridItems(posts)
	} else {
		resp.Posts = posts
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// RegisterPushToken stores an Expo push token for the authenticated account
func (h *Handler) RegisterPushToken(c *fiber.Ctx) error {
	type pushTokenRequest struct {
		Token string `json:"token" validate:"required"`
	}

	var req pushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse(validationMessage(err)))
	}

	session := middleware.CurrentSession(c)
	if err := h.sessions.RegisterPushToken(c.UserContext(), session.AccountID, req.Token); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Push token registered"))
}

// GridItems turns posts into grid cells: the image when there is one,
// otherwise a text preview.
func GridItems(posts []models.Post) []models.GridItem {
	items := make([]models.GridItem, 0, len(posts))
	for _, p := range posts {
		item := models.GridItem{ID: p.ID, ImageURL: p.ImageURL}
		if p.ImageURL == "" {
			item.Preview = preview(p.Content)
		}
		items = append(items, item)
	}
	return items
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:previewLength])) + "…"
}

// Initials is the two-letter avatar text for a display name.
func Initials(displayName string) string {
	if strings.TrimSpace(displayName) == "" {
		displayName = "NN"
	}
	var b strings.Builder
	for _, word := range strings.Fields(displayName) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	out := []rune(strings.ToUpper(b.String()))
	if len(out) > 2 {
		out = out[:2]
	}
	return string(out)
}
