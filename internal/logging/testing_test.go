package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_RecordsDownToTrace(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "wire dump")
	tl.Error(ctx, "boom")

	logs := tl.All()
	require.Len(t, logs, 2)
	assert.Equal(t, TraceLevel, logs[0].Level)
}

func TestTestLogger_Logged(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "plan generated for wifi-toggle")

	assert.True(t, tl.Logged(zapcore.InfoLevel, "plan generated"))
	assert.False(t, tl.Logged(zapcore.ErrorLevel, "plan generated"), "level must match")
	assert.False(t, tl.Logged(zapcore.InfoLevel, "verdict"))
}

func TestTestLogger_Field(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "dispatch",
		zap.String("backend", "simulator"),
		zap.Int("step", 4),
	)

	v, ok := tl.Field("dispatch", "backend")
	require.True(t, ok)
	assert.Equal(t, "simulator", v)

	n, ok := tl.Field("dispatch", "step")
	require.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = tl.Field("dispatch", "missing")
	assert.False(t, ok)
	_, ok = tl.Field("no such message", "backend")
	assert.False(t, ok)
}

func TestTestLogger_TakeAllClears(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "first")

	taken := tl.TakeAll()
	assert.Len(t, taken, 1)
	assert.Empty(t, tl.All())
}

func TestTestLogger_AssertLogged(t *testing.T) {
	tl := NewTestLogger()
	tl.Warn(context.Background(), "verifier retry scheduled")

	tl.AssertLogged(t, zapcore.WarnLevel, "retry scheduled")
}

func TestTestLogger_AssertNoSecrets_CleanLog(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "agent connected", zap.String("device", "emulator-5554"))
	tl.Info(ctx, "auth ok", RedactedString("token", "tok-123"))

	tl.AssertNoSecrets(t)
}

func TestTestLogger_AssertNoSecrets_LeakDetection(t *testing.T) {
	// Exercise the detectors directly; calling AssertNoSecrets on a
	// leaky log would fail this test.
	assert.True(t, leakPatterns[0].MatchString("Bearer eyJhbGciOi"))
	assert.True(t, leakPatterns[1].MatchString("api_key=abc123"))
	assert.True(t, leakPatterns[2].MatchString("sk-abcdef123456"))
	assert.False(t, leakPatterns[2].MatchString("sk-short"))
	assert.Contains(t, leakKeys, "password")
}
