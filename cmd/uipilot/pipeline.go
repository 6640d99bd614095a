package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/uipilot/internal/backend"
	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/llm"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/planner"
	"github.com/fyrsmithlabs/uipilot/internal/supervisor"
	"github.com/fyrsmithlabs/uipilot/internal/telemetry"
	"github.com/fyrsmithlabs/uipilot/internal/verifier"
)

// newTelemetry builds the telemetry stack from the app config. Disabled
// telemetry yields a no-op instance, so callers always get a usable
// value to shut down.
func newTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	return telemetry.New(ctx, telemetryConfig(cfg))
}

// telemetryConfig maps the app config onto the telemetry package config.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tcfg := telemetry.NewDefaultConfig()
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	tcfg.Protocol = cfg.Telemetry.Protocol
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.ServiceName = cfg.Telemetry.ServiceName
	tcfg.ServiceVersion = version
	tcfg.Sampling.Rate = cfg.Telemetry.SampleRate
	return tcfg
}

// newLogger builds the process logger. The OTEL output is enabled only
// when the telemetry stack carries a log provider; tel may be nil.
func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lcfg, err := loggingConfig(cfg)
	if err != nil {
		return nil, err
	}

	provider := tel.LoggerProvider()
	if provider != nil {
		lcfg.Output.OTEL = true
	}

	return logging.NewLogger(lcfg, provider)
}

// loggingConfig maps the app config onto the logging package config.
func loggingConfig(cfg *config.Config) (*logging.Config, error) {
	lcfg := logging.NewDefaultConfig()

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	lcfg.Level = level
	lcfg.Format = cfg.Logging.Format

	return lcfg, nil
}

// buildSupervisor wires the full pipeline: generator, backend, planner,
// executor, verifier, supervisor. The returned cleanup releases backend
// resources (the browser backend holds a Chrome session) and is safe to
// call even when it has nothing to do.
func buildSupervisor(cfg *config.Config, logger *logging.Logger) (supervisor.Service, func(), error) {
	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create generator: %w", err)
	}

	dispatcher, err := backend.New(&cfg.Backend, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}
	cleanup := func() {
		if c, ok := dispatcher.(io.Closer); ok {
			_ = c.Close()
		}
	}

	plannerSvc, err := planner.NewService(gen, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create planner: %w", err)
	}

	executorSvc, err := executor.NewService(executorConfig(cfg), dispatcher, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create executor: %w", err)
	}

	verifierSvc, err := verifier.NewService(verifierConfig(cfg), logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create verifier: %w", err)
	}

	sup, err := supervisor.NewService(plannerSvc, executorSvc, verifierSvc, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create supervisor: %w", err)
	}

	return sup, cleanup, nil
}

// newGenerator selects the plan generator from the provider config.
func newGenerator(cfg *config.Config, logger *logging.Logger) (planner.Generator, error) {
	switch cfg.Provider.Kind {
	case config.ProviderScripted:
		return llm.NewScripted(), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAI(&llm.Config{
			Model:             cfg.Provider.Model,
			APIKey:            cfg.Provider.APIKey,
			BaseURL:           cfg.Provider.BaseURL,
			Temperature:       cfg.Provider.Temperature,
			MaxTokens:         cfg.Provider.MaxTokens,
			RequestsPerMinute: cfg.Provider.RequestsPerMinute,
			MaxRetries:        cfg.Provider.MaxRetries,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind: %q", cfg.Provider.Kind)
	}
}

// executorConfig maps executor tuning onto the service config. Zero
// values in the app config keep the service defaults.
func executorConfig(cfg *config.Config) *executor.Config {
	ecfg := executor.DefaultServiceConfig()
	if cfg.Executor.MaxAttempts > 0 {
		ecfg.MaxAttempts = cfg.Executor.MaxAttempts
	}
	if d := cfg.Executor.RetryDelay.Duration(); d > 0 {
		ecfg.RetryDelay = d
	}
	ecfg.ArtifactDir = cfg.Executor.ArtifactDir
	return ecfg
}

// verifierConfig maps verifier tuning onto the service config. A zero
// threshold keeps the service default.
func verifierConfig(cfg *config.Config) *verifier.Config {
	vcfg := verifier.DefaultServiceConfig()
	if cfg.Verifier.SuccessThreshold > 0 {
		vcfg.SuccessThreshold = cfg.Verifier.SuccessThreshold
	}
	return vcfg
}
