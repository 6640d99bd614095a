// Package telemetry wires the OpenTelemetry SDK into uipilot.
//
// Pipeline stages instrument themselves against the global otel
// providers; this package decides what those globals point at. New
// installs OTLP-exporting tracer and meter providers when export is
// enabled, and leaves the no-op globals in place when it is not, so
// stage code records spans and counters unconditionally:
//
//	tel, err := telemetry.New(ctx, telemetry.NewDefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Failures past config validation never abort a run. A provider that
// cannot reach its collector leaves the instance degraded; Status
// carries the first failure for diagnostics.
//
// In tests, NewCapture swaps the OTLP exporters for in-memory sinks:
//
//	capture := telemetry.NewCapture()
//	tracer := capture.Tracer("uipilot.planner")
//	_, span := tracer.Start(ctx, "planner.plan")
//	span.End()
//	if capture.Span("planner.plan") == nil {
//		t.Fatal("span not recorded")
//	}
package telemetry
