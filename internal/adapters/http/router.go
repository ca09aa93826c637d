package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/samirrijal/rateplan/internal/pkg/metrics"
)

// SetupRoutes registers the API, static client, health and docs routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	cfg := deps.Config.withDefaults()

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // GeoJSON compresses well even at the fastest level
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP; counters live in Valkey when configured
	app.Use(limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/")
		},
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Storage: deps.limiterStorage(),
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Map client
	app.Get("/", IndexHandler(deps))
	app.Static("/static", cfg.StaticDir)

	// Conversion API, bounded per request
	api := app.Group("/api")
	api.Post("/convert_plan_shape_files/", timeout.NewWithContext(ConvertPlanHandler(deps), cfg.RequestTimeout))
	api.Post("/create_project_file/", timeout.NewWithContext(CreateProjectHandler(deps), cfg.RequestTimeout))
	api.Post("/convert_plan_shape_to_project/", timeout.NewWithContext(ConvertPlanToProjectHandler(deps), cfg.RequestTimeout))
	api.Post("/convert_boundary_shape_files/", timeout.NewWithContext(ConvertBoundaryHandler(deps), cfg.RequestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app, cfg.DocsPath)
}
