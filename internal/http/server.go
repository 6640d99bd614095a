// Package http provides the uipilot HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/store"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const defaultListLimit = 20

// TaskRunner runs one goal through the pipeline. The supervisor
// satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, goal string) (*task.Result, error)
}

// ResultStore is the persistence surface the API needs.
type ResultStore interface {
	Save(ctx context.Context, result *task.Result) error
	Get(ctx context.Context, id string) (*task.Result, error)
	List(ctx context.Context, limit int) ([]store.Entry, error)
}

// Server provides HTTP endpoints for running and inspecting tasks.
type Server struct {
	echo   *echo.Echo
	runner TaskRunner
	store  ResultStore
	logger *logging.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// requestIDPattern matches IDs safe to propagate into log fields.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// NewServer creates the API server over a task runner and a store.
func NewServer(runner TaskRunner, results ResultStore, logger *logging.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("task runner cannot be nil")
	}
	if results == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8710,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestIDPattern.MatchString(rid) {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), rid)))
			}
			return next(c)
		}
	})
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})
	e.Use(NewRequestMetrics(logger).Middleware())

	s := &Server{
		echo:   e,
		runner: runner,
		store:  results,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/tasks", s.handleCreateTask)
	v1.GET("/tasks", s.handleListTasks)
	v1.GET("/tasks/:id", s.handleGetTask)
}

// MountMetrics exposes a metrics handler (normally promhttp) at
// /metrics. Serve-mode wiring calls this.
func (s *Server) MountMetrics(h http.Handler) {
	s.echo.GET("/metrics", echo.WrapHandler(h))
}

// handleHealth returns service liveness.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "uipilot",
		Version: s.config.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCreateTask runs a goal through the pipeline synchronously and
// persists the result.
func (s *Server) handleCreateTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid task request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.runner.Run(ctx, req.Goal)
	if err != nil {
		s.logger.Warn(ctx, "task run failed", zap.Error(err))
		return c.JSON(statusForRunError(err), ErrorResponse{Error: err.Error()})
	}

	if err := s.store.Save(ctx, result); err != nil {
		// The run already finished; losing persistence is not worth a 5xx.
		s.logger.Warn(ctx, "failed to save task result",
			zap.String("id", result.ID), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, result)
}

// handleListTasks returns stored results, newest first.
func (s *Server) handleListTasks(c echo.Context) error {
	ctx := c.Request().Context()

	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	entries, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to list task results", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list tasks"})
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	return c.JSON(http.StatusOK, TaskListResponse{Tasks: entries})
}

// handleGetTask returns one stored result by ID.
func (s *Server) handleGetTask(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	result, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("task %s not found", id)})
	}
	if err != nil {
		s.logger.Error(ctx, "failed to load task result", zap.String("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load task"})
	}

	return c.JSON(http.StatusOK, result)
}

// statusForRunError maps pipeline errors onto HTTP statuses: a bad
// goal is the client's fault, a failed planning phase is the
// provider's.
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, task.ErrInvalidGoal):
		return http.StatusBadRequest
	case errors.Is(err, task.ErrPlanningFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
