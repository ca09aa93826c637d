package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers by endpoint unless the
// handler already set one. Conversion results are never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case strings.HasPrefix(path, "/api/"):
			ttl = "no-store" // Per-upload results
		case c.Method() != fiber.MethodGet:
			return err
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks
		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/static/"):
			ttl = "public, max-age=300" // Client assets change with deploys
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
