package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStage(t *testing.T) {
	before := testutil.ToFloat64(stageFailures.WithLabelValues("test.stage", "empty_plan"))

	ObserveStage("test.stage")("ok")
	ObserveStage("test.stage")("empty_plan")

	after := testutil.ToFloat64(stageFailures.WithLabelValues("test.stage", "empty_plan"))
	if after-before != 1 {
		t.Errorf("expected one recorded failure, got %g", after-before)
	}
	if n := testutil.CollectAndCount(stageDuration, "rateplan_pipeline_stage_duration_seconds"); n == 0 {
		t.Error("expected stage duration series")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(Middleware())
	app.Get("/metrics", Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200"))
	if _, err := app.Test(httptest.NewRequest("GET", "/ping", nil), -1); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200")) - before; got != 1 {
		t.Errorf("expected one counted request, got %g", got)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "rateplan_http_requests_total") {
		t.Error("expected rateplan_http_requests_total in exposition")
	}
}
