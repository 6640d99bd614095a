// Package planner decomposes a high-level goal into ordered UI steps.
package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
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

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/planner"

// promptTemplate is the fixed decomposition instruction. The goal is
// appended under the trailing Goal: header.
const promptTemplate = `You are an intelligent task planner for Android UI automation testing.
Given a high-level goal, break it down into step-by-step UI actions.

Format your answer as a numbered list of short steps.

Goal: %s
`

// stepLine matches a numbered list entry such as "1. text" or "2) text".
var stepLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.*\S)\s*$`)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service provides goal decomposition.
type Service interface {
	// Plan decomposes a goal into strictly ordered steps.
	Plan(ctx context.Context, goal string) ([]task.Step, error)
}

// service implements the Service interface.
type service struct {
	generator Generator
	logger    *logging.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	planCounter  metric.Int64Counter
	planDuration metric.Float64Histogram
}

// NewService creates a planner service.
func NewService(gen Generator, logger *logging.Logger) (Service, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		generator: gen,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.planCounter, err = s.meter.Int64Counter(
		"uipilot.planner.plans_total",
		metric.WithDescription("Total planning attempts labeled by outcome (ok, failed)"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create plan counter", zap.Error(err))
	}

	s.planDuration, err = s.meter.Float64Histogram(
		"uipilot.planner.generation_duration_seconds",
		metric.WithDescription("Plan generation latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create duration histogram", zap.Error(err))
	}
}

// Plan decomposes a goal into strictly ordered steps.
//
// The generator is called exactly once. Planning fails with
// task.ErrPlanningFailed when the generation call errors or when the
// response yields no steps.
func (s *service) Plan(ctx context.Context, goal string) ([]task.Step, error) {
	ctx, span := s.tracer.Start(ctx, "planner.plan")
	defer span.End()

	span.SetAttributes(attribute.Int("goal_chars", len(goal)))

	prompt := fmt.Sprintf(promptTemplate, goal)

	start := time.Now()
	text, err := s.generator.Generate(ctx, prompt)
	if s.planDuration != nil {
		s.planDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", task.ErrPlanningFailed, err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		s.recordPlan(ctx, "failed")
		s.logger.Error(ctx, "plan generation failed", zap.Error(err))
		return nil, wrapped
	}

	steps := parseSteps(text)
	if len(steps) == 0 {
		wrapped := fmt.Errorf("%w: no steps parsed from response", task.ErrPlanningFailed)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		s.recordPlan(ctx, "failed")
		s.logger.Error(ctx, "plan response contained no steps",
			zap.Int("response_chars", len(text)),
		)
		return nil, wrapped
	}

	s.recordPlan(ctx, "ok")
	span.SetAttributes(attribute.Int("steps", len(steps)))

	s.logger.Info(ctx, "plan created",
		zap.Int("steps", len(steps)),
		zap.Duration("generation_time", time.Since(start)),
	)

	return steps, nil
}

// parseSteps extracts numbered list entries from the generated text and
// re-indexes them contiguously from 1 in order of appearance. Prose,
// blank lines, and malformed entries are discarded.
func parseSteps(text string) []task.Step {
	var steps []task.Step
	for _, line := range strings.Split(text, "\n") {
		m := stepLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		steps = append(steps, task.Step{
			Index: len(steps) + 1,
			Text:  strings.TrimSpace(m[1]),
		})
	}
	return steps
}

func (s *service) recordPlan(ctx context.Context, outcome string) {
	if s.planCounter != nil {
		s.planCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}
