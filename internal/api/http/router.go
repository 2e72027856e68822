package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/maintenance-tracker/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/observability"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
)

// APIPrefix is the mount point of the versioned API.
const APIPrefix = "/api/v1"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group(APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", RequireJSON(), cfg.Auth.Register)
	authGroup.Post("/login", RequireJSON(), cfg.Auth.Login)
	authGroup.Post("/reset-password", RequireJSON(), cfg.Auth.ResetPassword)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.Logout)

	users := api.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("", auth.Require(policy.ActionListUsers), cfg.Users.List)
	users.Get("/:user_id", cfg.Users.Get)
	users.Get("/:user_id/requests", cfg.Requests.ListForOwner)
	users.Post("/:user_id/requests", auth.RequireOwner(policy.ActionCreateRequest, "user_id"), RequireJSON(), cfg.Requests.Create)
	users.Get("/:user_id/requests/:request_id", cfg.Requests.GetForOwner)
	users.Patch("/:user_id/requests/:request_id", auth.RequireOwner(policy.ActionEditRequest, "user_id"), RequireJSON(), cfg.Requests.Edit)
	users.Delete("/:user_id/requests/:request_id", cfg.Requests.Delete)
	users.Put("/:user_id/:action", cfg.Users.ChangeRole)

	requests := api.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	requests.Get("", auth.Require(policy.ActionListAllRequests), cfg.Requests.ListAll)
	requests.Get("/:request_id", cfg.Requests.Get)
	requests.Get("/:request_id/history", cfg.Requests.History)
	requests.Put("/:request_id/:action", cfg.Requests.Respond)
}
