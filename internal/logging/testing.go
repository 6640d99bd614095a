// internal/logging/testing.go
package logging

import (
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory for assertions. It observes at
// TraceLevel so nothing is filtered.
type TestLogger struct {
	*Logger
	entries *observer.ObservedLogs
}

// NewTestLogger returns a logger whose output can be inspected.
func NewTestLogger() *TestLogger {
	core, entries := observer.New(TraceLevel)
	return &TestLogger{
		Logger:  &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		entries: entries,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.entries.All()
}

// TakeAll returns the recorded entries and clears the buffer.
func (t *TestLogger) TakeAll() []observer.LoggedEntry {
	return t.entries.TakeAll()
}

// Logged reports whether an entry at lvl contains substr in its message.
func (t *TestLogger) Logged(lvl zapcore.Level, substr string) bool {
	for _, e := range t.entries.All() {
		if e.Level == lvl && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Field returns the value of the named field on the first entry whose
// message equals msg, and whether it was found. Integer fields come back
// as int64, matching zap's ContextMap convention.
func (t *TestLogger) Field(msg, key string) (interface{}, bool) {
	for _, e := range t.entries.FilterMessage(msg).All() {
		if v, ok := e.ContextMap()[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// AssertLogged fails tb unless an entry at lvl contains substr.
func (t *TestLogger) AssertLogged(tb testing.TB, lvl zapcore.Level, substr string) {
	tb.Helper()
	if !t.Logged(lvl, substr) {
		tb.Errorf("no %v entry containing %q, entries: %+v", lvl, substr, t.entries.All())
	}
}

var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+\S+`),
	regexp.MustCompile(`(?i)api[_-]?key[=:]\s*\S+`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{8,}`),
}

var leakKeys = []string{
	"password", "secret", "token", "api_key",
	"authorization", "bearer", "credential", "private_key",
}

// AssertNoSecrets fails tb when a recorded message or string field
// matches a credential pattern, or a field under a known-sensitive key
// carries an unredacted string value.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, e := range t.entries.All() {
		for _, re := range leakPatterns {
			if re.MatchString(e.Message) {
				tb.Errorf("credential pattern in message %q", e.Message)
			}
		}
		for _, f := range e.Context {
			if f.Type != zapcore.StringType {
				continue
			}
			for _, re := range leakPatterns {
				if re.MatchString(f.String) {
					tb.Errorf("credential pattern in field %q: %q", f.Key, f.String)
				}
			}
			lower := strings.ToLower(f.Key)
			for _, k := range leakKeys {
				if strings.Contains(lower, k) && f.String != "" && !strings.Contains(f.String, "[REDACTED") {
					tb.Errorf("sensitive field %q not redacted: %q", f.Key, f.String)
				}
			}
		}
	}
}
