package spool

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/spool"

// TaskRunner runs one goal through the pipeline.
type TaskRunner interface {
	Run(ctx context.Context, goal string) (*task.Result, error)
}

// ResultStore persists completed results.
type ResultStore interface {
	Save(ctx context.Context, result *task.Result) error
}

// Runner consumes spooled goals: it runs each one, persists the
// result, and writes `<name>.result.json` beside the goal file.
type Runner struct {
	runner TaskRunner
	store  ResultStore
	logger *logging.Logger

	goalCounter metric.Int64Counter
}

// errorFile is what a fatal run failure leaves beside the goal file.
type errorFile struct {
	Error string `json:"error"`
}

// NewRunner creates a spool runner. The store may be nil when
// persistence is not wanted.
func NewRunner(tr TaskRunner, rs ResultStore, logger *logging.Logger) (*Runner, error) {
	if tr == nil {
		return nil, errors.New("task runner is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	r := &Runner{
		runner: tr,
		store:  rs,
		logger: logger,
	}

	meter := otel.Meter(instrumentationName)
	var err error
	r.goalCounter, err = meter.Int64Counter(
		"uipilot.spool.goals_total",
		metric.WithDescription("Total spooled goals processed"),
		metric.WithUnit("{goal}"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create spool goal counter", zap.Error(err))
	}

	return r, nil
}

// Serve processes goal files until ctx is done or the channel closes.
func (r *Runner) Serve(ctx context.Context, events <-chan GoalFile) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gf, ok := <-events:
			if !ok {
				return nil
			}
			r.handle(ctx, gf)
		}
	}
}

// handle runs one spooled goal end to end.
func (r *Runner) handle(ctx context.Context, gf GoalFile) {
	r.logger.Info(ctx, "running spooled goal",
		zap.String("path", gf.Path),
		zap.String("goal", gf.Goal),
	)

	result, err := r.runner.Run(ctx, gf.Goal)
	if err != nil {
		r.logger.Error(ctx, "spooled goal failed", zap.String("path", gf.Path), zap.Error(err))
		r.record(ctx, false)
		r.writeResult(ctx, gf.Path, errorFile{Error: err.Error()})
		return
	}

	if r.store != nil {
		if err := r.store.Save(ctx, result); err != nil {
			r.logger.Warn(ctx, "failed to save spooled result",
				zap.String("id", result.ID), zap.Error(err))
		}
	}

	r.record(ctx, result.Verification.Success)
	r.writeResult(ctx, gf.Path, result)
}

// writeResult drops the JSON outcome beside the goal file.
func (r *Runner) writeResult(ctx context.Context, goalPath string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.logger.Warn(ctx, "failed to encode spool result", zap.Error(err))
		return
	}

	path := ResultPath(goalPath)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		r.logger.Warn(ctx, "failed to write spool result", zap.String("path", path), zap.Error(err))
		return
	}

	r.logger.Info(ctx, "wrote spool result", zap.String("path", path))
}

func (r *Runner) record(ctx context.Context, success bool) {
	if r.goalCounter != nil {
		r.goalCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// ResultPath returns where the result JSON for a goal file lands:
// the same directory, with the extension replaced by ".result.json".
func ResultPath(goalPath string) string {
	base := strings.TrimSuffix(goalPath, filepath.Ext(goalPath))
	return base + ".result.json"
}
