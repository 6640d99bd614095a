// Package config provides configuration loading for uipilot.
//
// Configuration is merged from three layers, highest precedence first:
// environment variables (UIPILOT_ prefix), a YAML config file, and
// hardcoded defaults. Domain services keep their own tuning defaults;
// zero values here mean "use the service default".
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete uipilot configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Provider  ProviderConfig  `koanf:"provider"`
	Backend   BackendConfig   `koanf:"backend"`
	Executor  ExecutorConfig  `koanf:"executor"`
	Verifier  VerifierConfig  `koanf:"verifier"`
	Store     StoreConfig     `koanf:"store"`
	Spool     SpoolConfig     `koanf:"spool"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ProviderConfig selects and tunes the plan generation service.
type ProviderConfig struct {
	// Kind selects the generator: "openai" or "scripted".
	Kind string `koanf:"kind"`

	Model       string  `koanf:"model"`
	APIKey      Secret  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`

	// RequestsPerMinute caps generation calls client-side.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// MaxRetries bounds client-internal retries of a failed call.
	MaxRetries int `koanf:"max_retries"`
}

// BackendConfig selects and tunes the step dispatch backend.
type BackendConfig struct {
	// Kind selects the dispatcher: "simulator", "agent" or "browser".
	Kind string `koanf:"kind"`

	Simulator SimulatorConfig `koanf:"simulator"`
	Agent     AgentConfig     `koanf:"agent"`
	Browser   BrowserConfig   `koanf:"browser"`
}

// SimulatorConfig tunes the offline simulator backend.
type SimulatorConfig struct {
	StepDelay Duration `koanf:"step_delay"`
}

// AgentConfig tunes the device-agent HTTP backend.
type AgentConfig struct {
	BaseURL string   `koanf:"base_url"`
	Token   Secret   `koanf:"token"`
	Timeout Duration `koanf:"timeout"`
}

// BrowserConfig tunes the chromedp console backend.
type BrowserConfig struct {
	ConsoleURL string   `koanf:"console_url"`
	Headless   bool     `koanf:"headless"`
	NoSandbox  bool     `koanf:"no_sandbox"`
	Timeout    Duration `koanf:"timeout"`
}

// ExecutorConfig tunes step execution. Zero values defer to the
// executor service defaults.
type ExecutorConfig struct {
	MaxAttempts int      `koanf:"max_attempts"`
	RetryDelay  Duration `koanf:"retry_delay"`
	ArtifactDir string   `koanf:"artifact_dir"`
}

// VerifierConfig tunes verification. Zero threshold defers to the
// verifier service default.
type VerifierConfig struct {
	SuccessThreshold int `koanf:"success_threshold"`
}

// StoreConfig holds task result persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file. "~/" expands to the home
	// directory.
	Path string `koanf:"path"`
}

// SpoolConfig holds goal spool watcher settings for watch mode.
type SpoolConfig struct {
	Dir     string `koanf:"dir"`
	Pattern string `koanf:"pattern"`
}

// LoggingConfig holds logger settings. Translated to the logging
// package's config at startup.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "console" or "json".
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings. Translated to the
// telemetry package's config at startup.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
	ServiceName string  `koanf:"service_name"`
}

// Known enum values.
const (
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"

	BackendSimulator = "simulator"
	BackendAgent     = "agent"
	BackendBrowser   = "browser"
)

// applyDefaults sets default values for missing configuration fields.
// Executor and verifier tuning stays zero when unset; startup wiring
// maps zeros to those services' own defaults.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8710
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	// Provider defaults: scripted runs offline with no credentials
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = ProviderScripted
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4"
	}
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = 0.2
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 512
	}
	if cfg.Provider.RequestsPerMinute == 0 {
		cfg.Provider.RequestsPerMinute = 30
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 2
	}

	// Backend defaults
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = BackendSimulator
	}
	if cfg.Backend.Simulator.StepDelay == 0 {
		cfg.Backend.Simulator.StepDelay = Duration(time.Second)
	}
	if cfg.Backend.Agent.Timeout == 0 {
		cfg.Backend.Agent.Timeout = Duration(30 * time.Second)
	}
	if cfg.Backend.Browser.Timeout == 0 {
		cfg.Backend.Browser.Timeout = Duration(30 * time.Second)
	}

	// Store and spool defaults
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.local/share/uipilot/tasks.db"
	}
	if cfg.Spool.Dir == "" {
		cfg.Spool.Dir = "spool"
	}
	if cfg.Spool.Pattern == "" {
		cfg.Spool.Pattern = "*.txt"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	// Telemetry defaults (disabled unless configured)
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "uipilot"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}

	switch c.Provider.Kind {
	case ProviderOpenAI:
		if !c.Provider.APIKey.IsSet() {
			return errors.New("provider.api_key is required for the openai provider")
		}
	case ProviderScripted:
	default:
		return fmt.Errorf("unknown provider kind: %q (must be %q or %q)",
			c.Provider.Kind, ProviderOpenAI, ProviderScripted)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("provider temperature out of range: %v (must be 0-2)", c.Provider.Temperature)
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries cannot be negative")
	}

	switch c.Backend.Kind {
	case BackendSimulator:
	case BackendAgent:
		if c.Backend.Agent.BaseURL == "" {
			return errors.New("backend.agent.base_url is required for the agent backend")
		}
	case BackendBrowser:
		if c.Backend.Browser.ConsoleURL == "" {
			return errors.New("backend.browser.console_url is required for the browser backend")
		}
	default:
		return fmt.Errorf("unknown backend kind: %q (must be %q, %q or %q)",
			c.Backend.Kind, BackendSimulator, BackendAgent, BackendBrowser)
	}

	if c.Executor.MaxAttempts < 0 {
		return errors.New("executor.max_attempts cannot be negative")
	}
	if c.Verifier.SuccessThreshold < 0 {
		return errors.New("verifier.success_threshold cannot be negative")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging format: %q (must be console or json)", c.Logging.Format)
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("unknown telemetry protocol: %q (must be grpc or http)", c.Telemetry.Protocol)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate out of range: %v (must be 0-1)", c.Telemetry.SampleRate)
	}

	return nil
}
