package http

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/http"

// RequestMetrics instruments the API surface: request counts, latency,
// response sizes, and in-flight requests. Instruments that fail to
// build stay nil and recording skips them, so a broken meter never
// breaks request handling.
type RequestMetrics struct {
	logger   *logging.Logger
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	respSize metric.Int64Histogram
	inflight metric.Int64UpDownCounter
}

// NewRequestMetrics builds the instruments on the global meter
// provider. logger may be nil.
func NewRequestMetrics(logger *logging.Logger) *RequestMetrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &RequestMetrics{logger: logger}
	if err := m.instrument(otel.Meter(instrumentationName)); err != nil {
		logger.Warn(context.Background(), "http instrumentation incomplete", zap.Error(err))
	}
	return m
}

func (m *RequestMetrics) instrument(meter metric.Meter) error {
	var errs []error

	var err error
	m.requests, err = meter.Int64Counter(
		"uipilot.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method (GET, POST), endpoint (/api/v1/tasks, etc.), and status code. Use rate() for request throughput."),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram(
		"uipilot.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint, and status. Use histogram_quantile for P50/P95/P99 latency. Task creation runs the whole pipeline, so its buckets reach minutes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	errs = append(errs, err)

	m.respSize, err = meter.Int64Histogram(
		"uipilot.http.response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes, labeled by method, endpoint, and status. Large responses may indicate inefficient payloads."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000, 100000, 500000),
	)
	errs = append(errs, err)

	m.inflight, err = meter.Int64UpDownCounter(
		"uipilot.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	return errors.Join(errs...)
}

// Middleware records one set of measurements per request.
func (m *RequestMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()
			start := time.Now()

			if m.inflight != nil {
				m.inflight.Add(ctx, 1)
			}

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("endpoint", endpointLabel(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.respSize != nil {
				m.respSize.Record(ctx, c.Response().Size, attrs)
			}
			if m.inflight != nil {
				m.inflight.Add(ctx, -1)
			}
			return err
		}
	}
}

var idSegments = []*regexp.Regexp{
	regexp.MustCompile(`/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`),
	regexp.MustCompile(`/\d+`),
}

// endpointLabel collapses concrete IDs in a path to a {id} placeholder.
// Matched routes already carry the route pattern (/api/v1/tasks/:id),
// but unmatched requests report their raw URI, and task IDs are UUIDs:
// without this every task would mint its own time series.
func endpointLabel(path string) string {
	if path == "" {
		return "/"
	}
	for _, re := range idSegments {
		path = re.ReplaceAllString(path, "/{id}")
	}
	return path
}
