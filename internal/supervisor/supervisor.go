package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/planner"
	"github.com/fyrsmithlabs/uipilot/internal/task"
	"github.com/fyrsmithlabs/uipilot/internal/verifier"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/supervisor"

// Final summary lines. The supervisor is the only component that
// composes them.
const (
	summarySuccess = "Task completed successfully."
	summaryFailure = "Task failed. Manual review required."
)

// Service drives one goal through the full pipeline.
type Service interface {
	// Run plans, executes, and verifies a goal, returning the complete
	// record of the run. It returns an error only when no result exists:
	// an empty goal (task.ErrInvalidGoal) or a failed planning phase
	// (task.ErrPlanningFailed). Execution and verification problems are
	// recorded inside the result instead.
	Run(ctx context.Context, goal string) (*task.Result, error)
}

// service implements the Service interface.
type service struct {
	planner  planner.Service
	executor executor.Service
	verifier verifier.Service
	logger   *logging.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	runCounter  metric.Int64Counter
	runDuration metric.Float64Histogram
}

// run holds all per-run state. Nothing here outlives the Run call, so
// concurrent runs never share mutable state.
type run struct {
	id        string
	goal      string
	state     State
	startedAt time.Time
}

// NewService creates a supervisor over the three pipeline services.
func NewService(p planner.Service, e executor.Service, v verifier.Service, logger *logging.Logger) (Service, error) {
	if p == nil {
		return nil, errors.New("planner is required")
	}
	if e == nil {
		return nil, errors.New("executor is required")
	}
	if v == nil {
		return nil, errors.New("verifier is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		planner:  p,
		executor: e,
		verifier: v,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.runCounter, err = s.meter.Int64Counter(
		"uipilot.supervisor.runs_total",
		metric.WithDescription("Total runs labeled by terminal state"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create run counter", zap.Error(err))
	}

	s.runDuration, err = s.meter.Float64Histogram(
		"uipilot.supervisor.run_duration_seconds",
		metric.WithDescription("End-to-end run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create run duration histogram", zap.Error(err))
	}
}

// Run drives one goal through planning, execution, and verification.
func (s *service) Run(ctx context.Context, goal string) (*task.Result, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("run rejected: %w", task.ErrInvalidGoal)
	}

	r := &run{
		id:        uuid.New().String(),
		goal:      goal,
		state:     StateIdle,
		startedAt: time.Now(),
	}

	ctx = logging.WithTaskID(ctx, r.id)
	ctx, span := s.tracer.Start(ctx, "supervisor.run", trace.WithAttributes(
		attribute.String("task.id", r.id),
	))
	defer span.End()

	s.logger.Info(ctx, "run started", zap.String("goal", r.goal))

	s.transition(ctx, r, StatePlanning)
	steps, err := s.planner.Plan(ctx, r.goal)
	if err != nil {
		s.transition(ctx, r, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning failed")
		s.recordRun(ctx, r, false)
		s.logger.Error(ctx, "run failed during planning", zap.Error(err))
		return nil, err
	}

	s.transition(ctx, r, StateExecuting)
	outcomes := s.executor.Execute(ctx, steps)

	s.transition(ctx, r, StateVerifying)
	verification := s.verifier.Verify(ctx, r.goal, outcomes)

	s.transition(ctx, r, StateCompleted)
	result := &task.Result{
		ID:           r.id,
		Goal:         r.goal,
		Steps:        steps,
		Outcomes:     outcomes,
		Verification: verification,
		Summary:      summaryFor(verification.Success),
		StartedAt:    r.startedAt,
		CompletedAt:  time.Now(),
	}

	span.SetAttributes(
		attribute.Int("steps", len(steps)),
		attribute.Bool("verified", verification.Success),
	)
	s.recordRun(ctx, r, verification.Success)

	s.logger.Info(ctx, "run finished",
		zap.Int("steps", len(steps)),
		zap.Bool("verified", verification.Success),
		zap.String("summary", result.Summary),
	)

	return result, nil
}

// transition advances the run state. The pipeline only moves along the
// state graph; anything else is a programming error.
func (s *service) transition(ctx context.Context, r *run, to State) {
	if !r.state.CanTransition(to) {
		panic(fmt.Sprintf("supervisor: invalid state transition %s -> %s", r.state, to))
	}
	from := r.state
	r.state = to
	s.logger.Debug(ctx, "state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

// recordRun emits the terminal-state metrics for a finished run.
func (s *service) recordRun(ctx context.Context, r *run, verified bool) {
	attrs := metric.WithAttributes(
		attribute.String("state", string(r.state)),
		attribute.Bool("verified", verified),
	)
	if s.runCounter != nil {
		s.runCounter.Add(ctx, 1, attrs)
	}
	if s.runDuration != nil {
		s.runDuration.Record(ctx, time.Since(r.startedAt).Seconds(), attrs)
	}
}

// summaryFor composes the single final line for a run.
func summaryFor(verified bool) string {
	if verified {
		return summarySuccess
	}
	return summaryFailure
}
