package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// TestValidate exercises the per-field validation rules.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantSub: "",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantSub: "server port",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantSub: "server port",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider.Kind = "oracle" },
			wantSub: "provider kind",
		},
		{
			name: "openai requires key",
			mutate: func(c *Config) {
				c.Provider.Kind = ProviderOpenAI
				c.Provider.APIKey = ""
			},
			wantSub: "api_key",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Provider.Temperature = 3.5 },
			wantSub: "temperature",
		},
		{
			name: "agent requires base url",
			mutate: func(c *Config) {
				c.Backend.Kind = BackendAgent
				c.Backend.Agent.BaseURL = ""
			},
			wantSub: "base_url",
		},
		{
			name: "browser requires console url",
			mutate: func(c *Config) {
				c.Backend.Kind = BackendBrowser
				c.Backend.Browser.ConsoleURL = ""
			},
			wantSub: "console_url",
		},
		{
			name:    "negative max attempts",
			mutate:  func(c *Config) { c.Executor.MaxAttempts = -1 },
			wantSub: "max_attempts",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Verifier.SuccessThreshold = -2 },
			wantSub: "success_threshold",
		},
		{
			name:    "bad telemetry protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "smoke-signal" },
			wantSub: "telemetry protocol",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantSub: "sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantSub == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

// TestDuration tests the text codec of the Duration wrapper.
func TestDuration(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1500ms")); err != nil {
		t.Fatalf("UnmarshalText(1500ms) error = %v", err)
	}
	if d.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", d.Duration())
	}

	if err := d.UnmarshalText([]byte("-5s")); err == nil {
		t.Error("UnmarshalText(-5s) error = nil, want negative-duration error")
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText(soon) error = nil, want parse error")
	}

	out, err := json.Marshal(Duration(2 * time.Second))
	if err != nil {
		t.Fatalf("MarshalJSON error = %v", err)
	}
	if string(out) != `"2s"` {
		t.Errorf("MarshalJSON = %s, want \"2s\"", out)
	}
}

// TestSecret tests that secrets never leak through standard surfaces.
func TestSecret(t *testing.T) {
	s := Secret("sk-very-secret")

	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q, want [REDACTED]", s.String())
	}
	if s.GoString() != "Secret([REDACTED])" {
		t.Errorf("GoString() = %q, want Secret([REDACTED])", s.GoString())
	}
	if s.Value() != "sk-very-secret" {
		t.Errorf("Value() = %q, want the raw secret", s.Value())
	}
	if !s.IsSet() {
		t.Error("IsSet() = false, want true")
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("MarshalJSON error = %v", err)
	}
	if string(out) != `"[REDACTED]"` {
		t.Errorf("MarshalJSON = %s, want \"[REDACTED]\"", out)
	}

	var empty Secret
	if empty.String() != "" {
		t.Errorf("empty String() = %q, want empty", empty.String())
	}
	if empty.IsSet() {
		t.Error("empty IsSet() = true, want false")
	}

	var round Secret
	if err := round.UnmarshalText([]byte("raw-token")); err != nil {
		t.Fatalf("UnmarshalText error = %v", err)
	}
	if round.Value() != "raw-token" {
		t.Errorf("Value() after UnmarshalText = %q, want raw-token", round.Value())
	}
}
