package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/uipilot/internal/config"
)

// Wire protocols accepted for OTLP export.
const (
	protocolGRPC = "grpc"
	protocolHTTP = "http"
)

// Config controls OTLP export of traces and metrics. The zero value is
// not usable; start from NewDefaultConfig.
type Config struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	Protocol       string `koanf:"protocol"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`

	// Insecure disables TLS entirely and is only accepted for loopback
	// endpoints. TLSSkipVerify keeps TLS but trusts any certificate,
	// for collectors behind internal CAs.
	Insecure      bool `koanf:"insecure"`
	TLSSkipVerify bool `koanf:"tls_skip_verify"`

	Sampling SamplingConfig `koanf:"sampling"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Shutdown ShutdownConfig `koanf:"shutdown"`
}

// SamplingConfig controls the trace sampler.
type SamplingConfig struct {
	// Rate is the fraction of root spans to sample, 0 through 1.
	Rate float64 `koanf:"rate"`
	// AlwaysOnErrors keeps error spans regardless of Rate.
	AlwaysOnErrors bool `koanf:"always_on_errors"`
}

// MetricsConfig controls the periodic metric exporter.
type MetricsConfig struct {
	Enabled        bool            `koanf:"enabled"`
	ExportInterval config.Duration `koanf:"export_interval"`
}

// ShutdownConfig bounds provider shutdown.
type ShutdownConfig struct {
	Timeout config.Duration `koanf:"timeout"`
}

// NewDefaultConfig returns defaults tuned for a collector on the local
// host. Export stays off until explicitly enabled so the CLI works
// without any OTEL infrastructure.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       protocolGRPC,
		ServiceName:    "uipilot",
		ServiceVersion: "0.1.0",
		Insecure:       true,
		Sampling: SamplingConfig{
			Rate:           1.0,
			AlwaysOnErrors: true,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: config.Duration(15 * time.Second),
		},
		Shutdown: ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return errors.New("endpoint must be set when telemetry is enabled")
	}
	switch c.Protocol {
	case "", protocolGRPC, protocolHTTP:
	default:
		return fmt.Errorf("unsupported protocol %q (want %q or %q)", c.Protocol, protocolGRPC, protocolHTTP)
	}
	if c.ServiceName == "" {
		return errors.New("service_name must be set when telemetry is enabled")
	}
	if c.ServiceVersion == "" {
		return errors.New("service_version must be set when telemetry is enabled")
	}
	if c.Insecure && !isLoopback(c.Endpoint) {
		return fmt.Errorf("refusing insecure export to %q: plaintext OTLP is only allowed for loopback endpoints", c.Endpoint)
	}
	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling.rate must be within [0, 1], got %v", c.Sampling.Rate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return errors.New("metrics.export_interval must be positive")
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return errors.New("shutdown.timeout must be positive")
	}
	return nil
}

// protocol returns the configured protocol, defaulting to gRPC.
func (c *Config) protocol() string {
	if c.Protocol == "" {
		return protocolGRPC
	}
	return c.Protocol
}

// isLoopback reports whether the endpoint addresses the local host.
// IPv6 endpoints must be bracketed ("[::1]:4317") to carry a port.
func isLoopback(endpoint string) bool {
	host := endpoint
	if h, _, err := net.SplitHostPort(endpoint); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
