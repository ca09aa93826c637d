package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/rateplan/internal/pkg/config"
)

func validConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:           8000,
			ReadTimeout:    30,
			WriteTimeout:   30,
			RequestTimeout: 60,
			BodyLimitMB:    100,
			IndexPage:      "gps_map_simple.html",
		},
		Ingest:    config.IngestConfig{DefaultInputCRS: "EPSG:4326"},
		RateLimit: config.RateLimitConfig{Max: 60, Expiration: time.Minute},
		Log:       config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("rateplan-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Ingest.DefaultInputCRS != "EPSG:4326" {
		t.Errorf("expected EPSG:4326, got %q", cfg.Ingest.DefaultInputCRS)
	}
	if cfg.NATS.URL != "" || cfg.Valkey.Addr != "" {
		t.Errorf("expected optional backends disabled, got nats=%q valkey=%q", cfg.NATS.URL, cfg.Valkey.Addr)
	}
	if cfg.Telemetry.ServiceName != "rateplan-test" {
		t.Errorf("expected service name from argument, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Server.BodyLimit() != 100<<20 {
		t.Errorf("expected 100 MiB body limit, got %d", cfg.Server.BodyLimit())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RATEPLAN_SERVER_PORT", "9100")
	t.Setenv("RATEPLAN_INGEST_DEFAULT_INPUT_CRS", "epsg:25832")
	t.Setenv("RATEPLAN_NATS_URL", "nats://broker:4222")

	cfg, err := config.Load("rateplan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Ingest.DefaultInputCRS != "EPSG:25832" {
		t.Errorf("expected canonical EPSG:25832, got %q", cfg.Ingest.DefaultInputCRS)
	}
	if cfg.NATS.URL != "nats://broker:4222" {
		t.Errorf("unexpected nats url %q", cfg.NATS.URL)
	}
}

func TestLoad_RejectsBadDefaultCRS(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RATEPLAN_INGEST_DEFAULT_INPUT_CRS", "WGS 84")

	if _, err := config.Load("rateplan"); err == nil {
		t.Fatal("expected error for non-authority default CRS")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"port", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"request timeout", func(c *config.Config) { c.Server.RequestTimeout = 0 }, "server.request_timeout"},
		{"body limit", func(c *config.Config) { c.Server.BodyLimitMB = -1 }, "server.body_limit_mb"},
		{"crs", func(c *config.Config) { c.Ingest.DefaultInputCRS = "EPSG:1" }, "ingest.default_input_crs"},
		{"rate limit", func(c *config.Config) { c.RateLimit.Max = 0 }, "ratelimit.max"},
		{"tempo", func(c *config.Config) { c.Telemetry.Enabled = true }, "telemetry.tempo_addr"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = -1
	cfg.RateLimit.Expiration = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.port", "ratelimit.expiration"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in %q", want, err)
		}
	}
}
