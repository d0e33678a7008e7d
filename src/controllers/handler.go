package controllers

import (
	"github.com/go-playground/validator/v10"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/notify"
)

// Handler carries the collaborators every controller needs.
type Handler struct {
	posts    *feed.Service
	sessions *auth.Service
	users    auth.Users
	notifier *notify.Notifier
	mirror   *Mirror
	validate *validator.Validate
}

func NewHandler(posts *feed.Service, sessions *auth.Service, users auth.Users, notifier *notify.Notifier, mirror *Mirror) *Handler {
	return &Handler{
		posts:    posts,
		sessions: sessions,
		users:    users,
		notifier: notifier,
		mirror:   mirror,
		validate: validator.New(),
	}
}

func (h *Handler) Mirror() *Mirror {
	return h.mirror
}
