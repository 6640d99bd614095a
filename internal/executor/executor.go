// Package executor dispatches plan steps in strict order and records a
// verdict for every step.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/executor"

// Config configures the executor service.
type Config struct {
	// MaxAttempts bounds total dispatch attempts per step, first try
	// included.
	MaxAttempts int

	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration

	// ArtifactDir is where step screenshots are written, one
	// subdirectory per task. Empty disables artifact capture.
	ArtifactDir string
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

// Service provides ordered step execution.
type Service interface {
	// Execute dispatches steps in slice order and returns exactly one
	// outcome per step, index-aligned with the input. A failed step
	// never aborts the run; later steps still execute and report their
	// own results.
	Execute(ctx context.Context, steps []task.Step) []task.StepOutcome
}

// service implements the Service interface.
type service struct {
	config     *Config
	dispatcher Dispatcher
	logger     *logging.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	stepCounter  metric.Int64Counter
	retryCounter metric.Int64Counter
	stepDuration metric.Float64Histogram
}

// NewService creates an executor service.
func NewService(cfg *Config, d Dispatcher, logger *logging.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay cannot be negative, got %v", cfg.RetryDelay)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		config:     cfg,
		dispatcher: d,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.stepCounter, err = s.meter.Int64Counter(
		"uipilot.executor.steps_total",
		metric.WithDescription("Total steps dispatched labeled by status (succeeded, failed)"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create step counter", zap.Error(err))
	}

	s.retryCounter, err = s.meter.Int64Counter(
		"uipilot.executor.retries_total",
		metric.WithDescription("Total step dispatch retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create retry counter", zap.Error(err))
	}

	s.stepDuration, err = s.meter.Float64Histogram(
		"uipilot.executor.step_duration_seconds",
		metric.WithDescription("Per-step dispatch duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create duration histogram", zap.Error(err))
	}
}

// Execute dispatches steps in order. The returned slice always has
// exactly one entry per step; failures are recorded in the outcome,
// never returned as errors.
func (s *service) Execute(ctx context.Context, steps []task.Step) []task.StepOutcome {
	ctx, span := s.tracer.Start(ctx, "executor.execute")
	defer span.End()

	span.SetAttributes(attribute.Int("steps", len(steps)))

	outcomes := make([]task.StepOutcome, len(steps))
	for i, step := range steps {
		outcomes[i] = s.dispatchStep(ctx, step)
	}

	failed := 0
	for i := range outcomes {
		if outcomes[i].Status == task.StepFailed {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed_steps", failed))

	s.logger.Info(ctx, "execution finished",
		zap.Int("steps", len(steps)),
		zap.Int("failed", failed),
	)

	return outcomes
}

// dispatchStep runs one step to a final verdict, retrying transient
// failures up to the attempt budget.
func (s *service) dispatchStep(ctx context.Context, step task.Step) task.StepOutcome {
	stepCtx := ctx
	if step.Index >= 1 {
		stepCtx = logging.WithStep(ctx, step.Index)
	}

	stepCtx, span := s.tracer.Start(stepCtx, "executor.dispatch_step")
	defer span.End()

	span.SetAttributes(attribute.Int("step_index", step.Index))

	start := time.Now()

	var res *Result
	var err error
	attempts := 0

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.config.RetryDelay):
			case <-stepCtx.Done():
			}
			if cerr := stepCtx.Err(); cerr != nil {
				err = cerr
				break
			}
			s.recordRetry(stepCtx)
		}

		attempts = attempt
		res, err = s.dispatcher.Dispatch(stepCtx, step)
		if err == nil {
			break
		}

		s.logger.Warn(stepCtx, "step dispatch failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.config.MaxAttempts),
			zap.Bool("transient", IsTransient(err)),
			zap.Error(err),
		)

		if !IsTransient(err) {
			break
		}
	}

	outcome := task.StepOutcome{
		Index:    step.Index,
		Attempts: attempts,
	}

	if err != nil {
		outcome.Status = task.StepFailed
		outcome.Message = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		if res == nil {
			res = &Result{}
		}
		outcome.Status = task.StepSucceeded
		outcome.Message = res.Message

		if len(res.Image) > 0 {
			path, werr := s.writeArtifact(stepCtx, step.Index, res.Image)
			if werr != nil {
				s.logger.Warn(stepCtx, "artifact write failed", zap.Error(werr))
			} else if path != "" {
				outcome.Artifact = path
			}
		}
	}

	span.SetAttributes(
		attribute.String("status", string(outcome.Status)),
		attribute.Int("attempts", attempts),
	)
	s.recordStep(stepCtx, outcome.Status, time.Since(start))

	return outcome
}

// writeArtifact stores image bytes under
// <artifact_dir>/<task-id>/step_NN.png and returns the written path.
// Returns empty without error when capture is disabled.
func (s *service) writeArtifact(ctx context.Context, stepIndex int, image []byte) (string, error) {
	if s.config.ArtifactDir == "" {
		return "", nil
	}

	taskID := logging.TaskIDFromContext(ctx)
	if taskID == "" {
		taskID = "untracked"
	}

	dir := filepath.Join(s.config.ArtifactDir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("step_%02d.png", stepIndex))
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}

	return path, nil
}

func (s *service) recordStep(ctx context.Context, status task.StepStatus, d time.Duration) {
	if s.stepCounter != nil {
		s.stepCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(status)),
		))
	}
	if s.stepDuration != nil {
		s.stepDuration.Record(ctx, d.Seconds())
	}
}

func (s *service) recordRetry(ctx context.Context) {
	if s.retryCounter != nil {
		s.retryCounter.Add(ctx, 1)
	}
}
