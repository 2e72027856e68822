package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/api/dto"
	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

func respond(c *fiber.Ctx, status int, data any, message string) error {
	body := fiber.Map{"data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

// bind decodes the JSON body into dst and checks its required fields.
func bind(c *fiber.Ctx, v *dto.Validator, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewBadRequest("request data is not valid json")
	}
	return v.Validate(dst)
}

// actor is nil when the route is not behind AuthMiddleware; services answer that with 401.
func actor(c *fiber.Ctx) *policy.Actor {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.Actor()
}
