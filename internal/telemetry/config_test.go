package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/uipilot/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled, "export is opt-in")
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "uipilot", cfg.ServiceName)
	assert.Equal(t, "0.1.0", cfg.ServiceVersion)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Sampling.AlwaysOnErrors)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"enabled defaults", func(*Config) {}, ""},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Endpoint = "" }, ""},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint must be set"},
		{"unknown protocol", func(c *Config) { c.Protocol = "udp" }, "unsupported protocol"},
		{"blank protocol accepted", func(c *Config) { c.Protocol = "" }, ""},
		{"empty service name", func(c *Config) { c.ServiceName = "" }, "service_name must be set"},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }, "service_version must be set"},
		{"negative sampling rate", func(c *Config) { c.Sampling.Rate = -0.5 }, "sampling.rate"},
		{"sampling rate above one", func(c *Config) { c.Sampling.Rate = 1.5 }, "sampling.rate"},
		{"zero export interval", func(c *Config) { c.Metrics.ExportInterval = config.Duration(0) }, "export_interval"},
		{"export interval ignored when metrics off", func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.ExportInterval = config.Duration(0)
		}, ""},
		{"zero shutdown timeout", func(c *Config) { c.Shutdown.Timeout = config.Duration(0) }, "shutdown.timeout"},
		{"plaintext to remote collector", func(c *Config) { c.Endpoint = "otel.fyrsmith.dev:4317" }, "insecure"},
		{"plaintext to loopback", func(c *Config) { c.Endpoint = "127.0.0.1:4317" }, ""},
		{"tls to remote collector", func(c *Config) {
			c.Endpoint = "otel.fyrsmith.dev:4317"
			c.Insecure = false
		}, ""},
		{"tls skip verify to remote collector", func(c *Config) {
			c.Endpoint = "otel.fyrsmith.dev:4317"
			c.Insecure = false
			c.TLSSkipVerify = true
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"localhost", true},
		{"LOCALHOST:4317", true},
		{"127.0.0.1:4317", true},
		{"127.0.1.1:4317", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"otel.fyrsmith.dev:4317", false},
		{"192.168.1.20:4317", false},
		{"10.0.0.8:4317", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isLoopback(tt.endpoint))
		})
	}
}

func TestConfig_ProtocolDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "grpc", cfg.protocol())

	cfg.Protocol = "http"
	assert.Equal(t, "http", cfg.protocol())
}
