package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/middleware"
	"github.com/theleywin/Framez-Backend/src/models"
)

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"required,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Session *models.Session `json:"session"`
}

// Signup creates an account and returns its first token
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse(validationMessage(err)))
	}

	session, token, err := h.sessions.SignUp(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}

	lib.LogJSON("info", "account created", map[string]interface{}{"account_id": session.AccountID})

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, Session: session})
}

// Login checks the credentials and returns a fresh token
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse(validationMessage(err)))
	}

	session, token, err := h.sessions.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(authResponse{Token: token, Session: session})
}

// Logout revokes the token used for this request. Open feed streams bound to
// it are closed.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.SignOut(c.UserContext(), middleware.CurrentToken(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Logged out successfully"))
}

// GetCurrentUser returns the session behind the token
func (h *Handler) GetCurrentUser(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(middleware.CurrentSession(c))
}
