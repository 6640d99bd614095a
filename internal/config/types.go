// internal/config/types.go
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that unmarshals from the usual string
// form ("30s", "1m30s") so it can live in YAML and env vars.
type Duration time.Duration

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return d.Duration().String()
}

// UnmarshalText parses a duration string. Negative durations are
// rejected; every Duration in this config is a timeout or interval.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Secret holds a credential that must never appear in logs, dumps, or
// serialized config. Every output path prints a mask; only Value
// returns the real string.
type Secret string

const secretMask = "[REDACTED]"

// masked is the single place deciding what leaves the type: empty
// secrets stay empty so "unset" remains visible, anything else is the
// mask.
func (s Secret) masked() string {
	if s == "" {
		return ""
	}
	return secretMask
}

// String implements fmt.Stringer, so %v and %s print the mask.
func (s Secret) String() string {
	return s.masked()
}

// GoString covers %#v, which bypasses Stringer.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the real credential. Keep call sites to the few places
// that hand it to a client library.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether a credential was provided.
func (s Secret) IsSet() bool {
	return s != ""
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.masked())
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.masked()), nil
}

// UnmarshalText accepts the raw value; input paths are the one
// direction where the real credential flows.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Secret(raw)
	return nil
}
