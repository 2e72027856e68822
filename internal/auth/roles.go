package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/policy"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// RequireAuthenticated rejects requests that did not pass AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// Require guards a collection route with the role rules of action.
// Ownership rules run later, once the resource is known.
func Require(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := policy.Authorize(principal.Actor(), action, policy.Resource{}); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireOwner applies the role and ownership rules of action to the owner named by a path parameter.
// Body checks run after it.
func RequireOwner(action policy.Action, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := policy.Authorize(principal.Actor(), action, policy.Resource{OwnerID: c.Params(param)}); err != nil {
			return err
		}
		return c.Next()
	}
}
