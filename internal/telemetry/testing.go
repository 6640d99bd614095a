package telemetry

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Capture is an in-memory Telemetry for tests. Spans land in Recorder
// and metrics are pulled through Reader, so assertions run against
// real SDK output without a collector.
type Capture struct {
	*Telemetry

	Recorder *tracetest.SpanRecorder
	Reader   *sdkmetric.ManualReader
}

// NewCapture builds a Telemetry wired to in-memory trace and metric
// sinks. The global otel providers are left untouched.
func NewCapture() *Capture {
	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	cfg := NewDefaultConfig()
	cfg.Enabled = true

	return &Capture{
		Telemetry: &Telemetry{
			cfg:     cfg,
			traces:  sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
			metrics: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		Recorder: recorder,
		Reader:   reader,
	}
}

// Span returns the first ended span with the given name, or nil.
func (c *Capture) Span(name string) sdktrace.ReadOnlySpan {
	for _, s := range c.Recorder.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// SpanNames lists all ended span names in completion order.
func (c *Capture) SpanNames() []string {
	ended := c.Recorder.Ended()
	names := make([]string, len(ended))
	for i, s := range ended {
		names[i] = s.Name()
	}
	return names
}

// Collect drains the current metric state from the manual reader.
func (c *Capture) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := c.Reader.Collect(ctx, &rm)
	return rm, err
}
