package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/service"
)

// UsersHandler exposes user administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, users, "")
}

// Get handles GET /users/:user_id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), actor(c), c.Params("user_id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "")
}

// ChangeRole handles PUT /users/:user_id/:action with action promote or demote.
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	result, err := h.users.ChangeRole(c.UserContext(), actor(c), c.Params("user_id"), c.Params("action"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, result.User, result.Message)
}
