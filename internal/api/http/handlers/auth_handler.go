package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/api/dto"
	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/service"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// AuthHandler exposes registration, login, logout and password reset.
type AuthHandler struct {
	users     *service.UserService
	validator *dto.Validator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(users *service.UserService, validator *dto.Validator) *AuthHandler {
	return &AuthHandler{users: users, validator: validator}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	user, err := h.users.Register(c.UserContext(), service.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		ConfirmPassword:  req.ConfirmPassword,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
		Role:             req.Role,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.AuthResponse{
		Token:     result.Session.Token,
		TokenType: "Bearer",
		ExpiresAt: result.Session.Identity.ExpiresAt,
		User:      result.User,
	}, "user logged in successfully")
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.users.Logout(c.UserContext(), &principal.Identity); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "user logged out successfully")
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	err := h.users.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Email:            req.Email,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
		NewPassword:      req.NewPassword,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "password reset successfully")
}
