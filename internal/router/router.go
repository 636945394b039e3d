package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-innovation-api/internal/config"
	"github.com/noah-isme/gema-innovation-api/internal/handler"
	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler   *handler.SubmissionHandler
	GamificationHandler *handler.GamificationHandler
	NotificationHandler *handler.NotificationHandler
	AuditHandler        *handler.AuditHandler
	JWTMiddleware       fiber.Handler
	HealthProbes        []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}

	if deps.GamificationHandler != nil {
		gamification := api.Group("/gamification", jwtMiddleware, middleware.RateLimit("gamification", 60, time.Minute))
		deps.GamificationHandler.Register(gamification)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}

	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(api.Group("/audit", jwtMiddleware, middleware.RequireRole("admin")))
	}
}
