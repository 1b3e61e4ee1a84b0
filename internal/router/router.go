package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/observability"
)

// Dependencies groups router dependencies for registration. Nil handlers are
// skipped.
type Dependencies struct {
	AssignmentHandler       *handler.AssignmentHandler
	SubmissionHandler       *handler.SubmissionHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	CohortHandler           *handler.CohortHandler
	UserHandler             *handler.UserHandler
	SessionHandler          *handler.SessionHandler
	ResourceHandler         *handler.ResourceHandler
	ActivityHandler         *handler.ActivityHandler
	EventsHandler           *handler.EventsHandler
	JWTMiddleware           fiber.Handler
	HealthProbes            map[string]handler.HealthProbe
	// UploadRateLimit caps uploads per user per minute. Zero disables it.
	UploadRateLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		if deps.UploadRateLimit > 0 {
			submissions.Use("/upload", middleware.RateLimit("submission_upload", deps.UploadRateLimit, time.Minute))
		}
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware))
	}

	if deps.CohortHandler != nil {
		deps.CohortHandler.Register(api.Group("/cohorts", jwtMiddleware))
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions", jwtMiddleware))
	}

	if deps.ResourceHandler != nil {
		deps.ResourceHandler.Register(api.Group("/resources", jwtMiddleware))
		deps.ResourceHandler.RegisterCategories(api.Group("/categories", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity", jwtMiddleware, middleware.RequireRole("admin", "trainer")))
	}

	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(api.Group("", jwtMiddleware))
	}

	if deps.EventsHandler != nil {
		deps.EventsHandler.Register(api.Group("/events", jwtMiddleware))
	}
}
