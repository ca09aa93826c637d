package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rateplan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rateplan",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
	}, []string{"method", "path"})

	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Pipeline runs by operation and outcome (ok or error kind)",
	}, []string{"operation", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of a single pipeline stage",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Pipeline stage failures by error kind",
	}, []string{"stage", "kind"})

	FeaturesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "features_ingested_total",
		Help:      "Features read from uploaded datasets",
	}, []string{"operation"})

	UploadSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "upload_size_bytes",
		Help:      "Total size of the files in one upload",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 9),
	})

	BoundariesSynthesized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "pipeline",
		Name:      "boundaries_synthesized_total",
		Help:      "Boundaries derived from plan geometry",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events handed to the broker by subject and result",
	}, []string{"subject", "result"})

	RateLimitStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rateplan",
		Subsystem: "ratelimit",
		Name:      "store_errors_total",
		Help:      "Failed operations against the shared rate-limit store",
	})
)

// ObserveStage starts timing a pipeline stage. The returned func records the
// duration and, unless outcome is "ok", a failure of that kind.
func ObserveStage(stage string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if outcome != "ok" {
			stageFailures.WithLabelValues(stage, outcome).Inc()
		}
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
