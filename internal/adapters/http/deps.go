package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/rateplan/internal/adapters/valkey"
	"github.com/samirrijal/rateplan/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Projects *usecases.ProjectService
	NATS     *nats.Conn
	Store    *valkey.Storage
	Config   RouterConfig
}

// RouterConfig tunes the routes and middleware. Zero values fall back to
// the defaults below.
type RouterConfig struct {
	StaticDir           string
	IndexPage           string
	RequestTimeout      time.Duration
	RateLimitMax        int
	RateLimitExpiration time.Duration
	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.StaticDir == "" {
		c.StaticDir = "./static"
	}
	if c.IndexPage == "" {
		c.IndexPage = "gps_map_simple.html"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 60
	}
	if c.RateLimitExpiration <= 0 {
		c.RateLimitExpiration = time.Minute
	}
	if c.DocsPath == "" {
		c.DocsPath = "api/openapi.yaml"
	}
	return c
}

// limiterStorage returns the shared store, or nil for fiber's in-memory one.
func (d *Dependencies) limiterStorage() fiber.Storage {
	if d.Store == nil {
		return nil
	}
	return d.Store
}
