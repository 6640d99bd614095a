package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry owns the OpenTelemetry providers for a uipilot process.
//
// Construction never leaves the caller without a usable value: when
// export is disabled or a provider fails to come up, accessors fall
// back to the global no-op providers and the instance reports itself
// degraded instead of failing the run.
type Telemetry struct {
	cfg *Config

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    log.LoggerProvider

	degraded atomic.Bool
	stopped  atomic.Bool
	initErr  error
}

// Status is a point-in-time snapshot of provider state.
type Status struct {
	Enabled  bool
	Degraded bool
	Stopped  bool
	Err      error
}

// New validates cfg and brings up the tracer and meter providers,
// installing them as the process-wide otel defaults.
//
// A disabled config yields a no-op instance. Provider failures degrade
// the instance rather than aborting; only an invalid config is
// returned as an error.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.degrade(fmt.Errorf("tracer provider: %w", err))
	} else {
		t.traces = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.Metrics.Enabled {
		if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
			t.degrade(fmt.Errorf("meter provider: %w", err))
		} else {
			t.metrics = mp
			otel.SetMeterProvider(mp)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return t, nil
}

// Tracer returns a tracer for the given instrumentation scope, falling
// back to the global provider when export is not running.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.traces == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.traces.Tracer(name, opts...)
}

// Meter returns a meter for the given instrumentation scope, falling
// back to the global provider when export is not running.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.metrics.Meter(name, opts...)
}

// LoggerProvider returns the provider backing the zap OTEL bridge, or
// nil when none is attached.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil {
		return nil
	}
	return t.logs
}

// SetLoggerProvider attaches a provider for the zap OTEL bridge.
func (t *Telemetry) SetLoggerProvider(lp log.LoggerProvider) {
	if t != nil {
		t.logs = lp
	}
}

// Active reports whether export is enabled and the instance has not
// been shut down.
func (t *Telemetry) Active() bool {
	if t == nil || t.cfg == nil {
		return false
	}
	return t.cfg.Enabled && !t.stopped.Load()
}

// Status reports provider state for diagnostics. A nil receiver reads
// as stopped and degraded.
func (t *Telemetry) Status() Status {
	if t == nil {
		return Status{Degraded: true, Stopped: true}
	}
	return Status{
		Enabled:  t.cfg != nil && t.cfg.Enabled,
		Degraded: t.degraded.Load(),
		Stopped:  t.stopped.Load(),
		Err:      t.initErr,
	}
}

// Shutdown flushes and stops all providers. It is idempotent; without
// a deadline on ctx the configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if t.stopped.Swap(true) {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && t.cfg != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.traces != nil {
		if err := t.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.metrics != nil {
		if err := t.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ForceFlush pushes pending spans and metrics to the exporters without
// stopping them. Batch exporters otherwise hold tail data until their
// next tick.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.traces != nil {
		if err := t.traces.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
	}
	if t.metrics != nil {
		if err := t.metrics.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// degrade records a provider failure. The first error is kept for
// Status; later failures only confirm the degraded flag.
func (t *Telemetry) degrade(err error) {
	if t.degraded.CompareAndSwap(false, true) {
		t.initErr = err
	}
}
