// Package logging wraps zap with the conventions the rest of uipilot
// relies on: a Trace level below Debug for wire detail, context-carried
// correlation fields on every entry, secret redaction at the encoder,
// level-aware sampling that never drops errors, and an optional
// OpenTelemetry output next to stdout.
//
// Build a logger from config and close over it:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), provider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// The provider argument feeds the OTEL bridge and may be nil. Every
// method takes a context; identifiers placed there travel into the
// entry automatically:
//
//	ctx = logging.WithTaskID(ctx, task.ID)
//	ctx = logging.WithStep(ctx, 3)
//	logger.Info(ctx, "step dispatched", zap.Duration("took", took))
//
// which renders as
//
//	{"ts":"2026-08-23T10:15:30Z","level":"info","msg":"step dispatched",
//	 "task.id":"wifi-toggle-01","task.step":3,"took":"45ms","trace_id":"..."}
//
// Redaction runs in layers. config.Secret values print masked on their
// own; the Secret and RedactedString field helpers mask explicitly; and
// the encoder masks anything under a configured field name or matching
// a configured pattern, whether the field was attached With or passed
// per call. The defaults cover the usual credential shapes (bearer
// headers, api keys, sk- prefixed model keys).
//
// Sampling protects against log floods from retry loops and watcher
// polls. Warn and below pass through a per-tick sampler; Error and
// above are exempt. Set Sampling.Enabled to false when diagnosing.
//
// Tests observe output through TestLogger:
//
//	tl := logging.NewTestLogger()
//	run(ctx, tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "verdict recorded")
//	tl.AssertNoSecrets(t)
//
// A Logger is safe for concurrent use, and children made with With or
// Named are independent of their parent.
package logging
