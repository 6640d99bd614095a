package backend

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

func TestDefaultSimulatorConfig(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	assert.Equal(t, time.Second, cfg.StepDelay)
}

func TestSimulator_Dispatch(t *testing.T) {
	sim := NewSimulator(&SimulatorConfig{StepDelay: 0}, nil)

	result, err := sim.Dispatch(context.Background(), task.Step{Index: 2, Text: "Enable Airplane Mode"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "completed: Enable Airplane Mode", result.Message)

	cfg, err := png.DecodeConfig(bytes.NewReader(result.Image))
	require.NoError(t, err, "screenshot must be a decodable PNG")
	assert.Equal(t, simImageWidth, cfg.Width)
	assert.Equal(t, simImageHeight, cfg.Height)
}

func TestSimulator_Dispatch_Delay(t *testing.T) {
	sim := NewSimulator(&SimulatorConfig{StepDelay: 50 * time.Millisecond}, nil)

	start := time.Now()
	_, err := sim.Dispatch(context.Background(), task.Step{Index: 1, Text: "tap"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSimulator_Dispatch_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("during delay", func(t *testing.T) {
		sim := NewSimulator(&SimulatorConfig{StepDelay: time.Minute}, nil)
		_, err := sim.Dispatch(ctx, task.Step{Index: 1, Text: "tap"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero delay", func(t *testing.T) {
		sim := NewSimulator(&SimulatorConfig{StepDelay: 0}, nil)
		_, err := sim.Dispatch(ctx, task.Step{Index: 1, Text: "tap"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSimulator_FailHook(t *testing.T) {
	sim := NewSimulator(&SimulatorConfig{StepDelay: 0}, nil)
	sim.failHook = func(step task.Step) error {
		if step.Index == 2 {
			return executor.Transient(errors.New("injected flake"))
		}
		return nil
	}

	result, err := sim.Dispatch(context.Background(), task.Step{Index: 1, Text: "ok step"})
	require.NoError(t, err)
	assert.Equal(t, "completed: ok step", result.Message)

	_, err = sim.Dispatch(context.Background(), task.Step{Index: 2, Text: "flaky step"})
	require.Error(t, err)
	assert.True(t, executor.IsTransient(err))
}

func TestRenderPlaceholder(t *testing.T) {
	data, err := renderPlaceholder("step 7")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, simImageWidth, img.Bounds().Dx())
	assert.Equal(t, simImageHeight, img.Bounds().Dy())
}
