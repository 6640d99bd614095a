// Package store persists completed task results in SQLite.
//
// Persistence is the caller's duty: the CLI, the HTTP server, and the
// spool runner call Save after a run; the supervisor itself never
// touches the store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/uipilot/internal/store"

// ErrNotFound indicates no result exists for the requested ID.
var ErrNotFound = errors.New("task result not found")

const schema = `
CREATE TABLE IF NOT EXISTS task_results (
	id          TEXT PRIMARY KEY,
	goal        TEXT NOT NULL,
	success     INTEGER NOT NULL,
	summary     TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_results_created_at ON task_results(created_at DESC);
`

// Entry is a lightweight listing row; the full result stays in Get.
type Entry struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Success   bool      `json:"success"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves task results.
type Store struct {
	db     *sql.DB
	logger *logging.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	saveCounter metric.Int64Counter
}

// Open opens (and if needed creates) the SQLite database at path.
// A leading "~/" expands to the user's home directory; parent
// directories are created.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *Store) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"uipilot.store.saves_total",
		metric.WithDescription("Total task results saved"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create save counter", zap.Error(err))
	}
}

// Save persists one completed result. Saving the same ID twice
// replaces the stored row.
func (s *Store) Save(ctx context.Context, result *task.Result) error {
	ctx, span := s.tracer.Start(ctx, "store.save")
	defer span.End()

	if result == nil || result.ID == "" {
		return errors.New("result with an ID is required")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO task_results (id, goal, success, summary, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Goal,
		boolToInt(result.Verification.Success),
		result.Summary,
		string(payload),
		result.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", result.ID, err)
	}

	span.SetAttributes(attribute.String("task.id", result.ID))
	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("success", result.Verification.Success),
		))
	}

	s.logger.Debug(ctx, "saved task result", zap.String("id", result.ID))
	return nil
}

// Get retrieves the full result for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*task.Result, error) {
	ctx, span := s.tracer.Start(ctx, "store.get")
	defer span.End()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT result_json FROM task_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}

	var result task.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &result, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx, span := s.tracer.Start(ctx, "store.list")
	defer span.End()

	query := `SELECT id, goal, success, summary, created_at
	          FROM task_results ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var success int
		if err := rows.Scan(&e.ID, &e.Goal, &success, &e.Summary, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		e.Success = success != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// expandHome resolves a leading "~/" against the home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
