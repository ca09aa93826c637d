package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/rateplan/internal/adapters/geojsonfile"
	"github.com/samirrijal/rateplan/internal/adapters/http"
	natsadapter "github.com/samirrijal/rateplan/internal/adapters/nats"
	"github.com/samirrijal/rateplan/internal/adapters/proj"
	"github.com/samirrijal/rateplan/internal/adapters/shapefile"
	"github.com/samirrijal/rateplan/internal/adapters/valkey"
	"github.com/samirrijal/rateplan/internal/core/ports"
	"github.com/samirrijal/rateplan/internal/core/usecases"
	"github.com/samirrijal/rateplan/internal/pkg/config"
	"github.com/samirrijal/rateplan/internal/pkg/logging"
	"github.com/samirrijal/rateplan/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("rateplan-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		Config: http.RouterConfig{
			StaticDir:           cfg.Server.StaticDir,
			IndexPage:           cfg.Server.IndexPage,
			RequestTimeout:      time.Duration(cfg.Server.RequestTimeout) * time.Second,
			RateLimitMax:        cfg.RateLimit.Max,
			RateLimitExpiration: cfg.RateLimit.Expiration,
		},
	}

	// Shared rate limit store (optional)
	if cfg.Valkey.Addr != "" {
		store, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, using in-memory rate limits", "error", err)
		} else {
			defer store.Close()
			deps.Store = store
		}
	}

	// Event publishing (optional)
	var events ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.NATS = pub.Conn()
		}
	}

	// Pipeline
	reader := usecases.NewSpatialReader(shapefile.NewReader(), geojsonfile.NewReader())
	normalizer := usecases.NewCRSNormalizer(proj.New())
	deps.Projects = usecases.NewProjectService(reader, normalizer, events, cfg.Ingest.DefaultInputCRS)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit(),
		AppName:      "Rate Plan API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "default_input_crs", cfg.Ingest.DefaultInputCRS)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
