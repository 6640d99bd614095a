// Package backend provides the step dispatch backends: an offline
// simulator, an HTTP device-agent client, and a Chrome-driven console.
// All of them implement executor.Dispatcher and mark retryable failures
// with executor.Transient; retry policy itself lives in the executor.
package backend

import (
	"fmt"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
)

// New builds the dispatcher selected by cfg.Kind.
func New(cfg *config.BackendConfig, logger *logging.Logger) (executor.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend config is required")
	}

	switch cfg.Kind {
	case config.BackendSimulator:
		return NewSimulator(&SimulatorConfig{
			StepDelay: cfg.Simulator.StepDelay.Duration(),
		}, logger), nil

	case config.BackendAgent:
		return NewAgent(&AgentConfig{
			BaseURL: cfg.Agent.BaseURL,
			Token:   cfg.Agent.Token.Value(),
			Timeout: cfg.Agent.Timeout.Duration(),
		}, logger)

	case config.BackendBrowser:
		return NewBrowser(&BrowserConfig{
			ConsoleURL: cfg.Browser.ConsoleURL,
			Headless:   cfg.Browser.Headless,
			NoSandbox:  cfg.Browser.NoSandbox,
			Timeout:    cfg.Browser.Timeout.Duration(),
		}, logger)

	default:
		return nil, fmt.Errorf("unknown backend kind: %q", cfg.Kind)
	}
}
