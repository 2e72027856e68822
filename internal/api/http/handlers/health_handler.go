package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-tracker/internal/persistence"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

const readinessTimeout = 2 * time.Second

// Dependency is a backing service checked by the readiness route.
// A nil Ping marks a store that was replaced by its in-memory fallback.
type Dependency struct {
	Name string
	Ping func(context.Context) error
}

// PostgresDependency checks the pool when DATABASE_URL configured one.
func PostgresDependency(pg *persistence.Postgres) Dependency {
	dep := Dependency{Name: "postgres"}
	if pg.Enabled() {
		dep.Ping = pg.Ping
	}
	return dep
}

// RedisDependency checks the revocation list backend.
func RedisDependency(r *persistence.Redis) Dependency {
	dep := Dependency{Name: "redis"}
	if r != nil {
		dep.Ping = r.Ping
	}
	return dep
}

type HealthHandler struct {
	serviceName string
	version     string
	deps        []Dependency
}

func NewHealthHandler(serviceName, version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every dependency and fails with 503 if any of them is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	report, down := h.check(ctx)
	if down > 0 {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", http.StatusServiceUnavailable, report)
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"service":      h.serviceName,
		"dependencies": report,
	})
}

func (h *HealthHandler) check(ctx context.Context) (map[string]any, int) {
	report := make(map[string]any, len(h.deps))
	down := 0
	for _, dep := range h.deps {
		switch {
		case dep.Ping == nil:
			report[dep.Name] = "in-memory"
		case dep.Ping(ctx) != nil:
			report[dep.Name] = "unavailable"
			down++
		default:
			report[dep.Name] = "ok"
		}
	}
	return report, down
}
