package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// TestE2E_GoalPipeline validates a complete offline run:
// 1. Plan a goal with the scripted generator
// 2. Execute every step on the simulator, capturing artifacts
// 3. Verify the outcome by keyword matching
// 4. Persist the result and read it back
func TestE2E_GoalPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()
	artifactDir := t.TempDir()

	sup := buildPipeline(t, artifactDir)
	st := openTestStore(t)

	// Run the goal
	goal := "Enable Airplane Mode from Settings"
	result, err := sup.Run(ctx, goal)
	require.NoError(t, err, "Pipeline run should succeed")
	require.NotNil(t, result)

	// The scripted generator plans five steps; every simulator dispatch
	// succeeds on the first attempt.
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, goal, result.Goal)
	require.Len(t, result.Steps, 5)
	require.Len(t, result.Outcomes, 5)
	for i, outcome := range result.Outcomes {
		assert.Equal(t, i+1, outcome.Index)
		assert.Equal(t, task.StepSucceeded, outcome.Status)
		assert.Equal(t, 1, outcome.Attempts)
	}

	// Verification matches the goal keywords
	assert.True(t, result.Verification.Success)
	assert.Subset(t, result.Verification.MatchedKeywords,
		[]string{"enable", "airplane", "mode", "settings"})
	assert.Equal(t, "Task completed successfully.", result.Summary)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))

	// Simulator screenshots landed under <artifactDir>/<task-id>/
	taskDir := filepath.Join(artifactDir, result.ID)
	entries, err := os.ReadDir(taskDir)
	require.NoError(t, err, "Artifact directory should exist")
	assert.Len(t, entries, 5)
	for _, outcome := range result.Outcomes {
		assert.FileExists(t, outcome.Artifact)
	}

	// Persist and read back
	require.NoError(t, st.Save(ctx, result))

	loaded, err := st.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, loaded.ID)
	assert.Equal(t, result.Goal, loaded.Goal)
	assert.Equal(t, result.Summary, loaded.Summary)
	assert.Len(t, loaded.Outcomes, 5)

	list, err := st.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.ID, list[0].ID)
	assert.True(t, list[0].Success)
}

// TestE2E_ConcurrentRuns checks that runs are independent: per-run
// state never leaks between concurrent pipelines.
func TestE2E_ConcurrentRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()
	sup := buildPipeline(t, "")

	goals := []string{
		"Enable Airplane Mode from Settings",
		"Set up Wi-Fi connection with custom network",
		"Configure notification settings for all apps",
	}

	type outcome struct {
		result *task.Result
		err    error
	}
	results := make(chan outcome, len(goals))

	for _, goal := range goals {
		go func(g string) {
			r, err := sup.Run(ctx, g)
			results <- outcome{result: r, err: err}
		}(goal)
	}

	seen := make(map[string]bool)
	for range goals {
		o := <-results
		require.NoError(t, o.err)
		require.NotNil(t, o.result)
		assert.Len(t, o.result.Outcomes, 5)
		assert.False(t, seen[o.result.ID], "Task IDs should be unique")
		seen[o.result.ID] = true

		// Every outcome message embeds its own run's step text
		for i, step := range o.result.Steps {
			assert.Contains(t, o.result.Outcomes[i].Message, step.Text)
		}
	}
}

// TestE2E_InvalidGoal checks the calls that must fail before any
// pipeline work happens.
func TestE2E_InvalidGoal(t *testing.T) {
	ctx := context.Background()
	sup := buildPipeline(t, "")

	for _, goal := range []string{"", "   ", "\n\t"} {
		result, err := sup.Run(ctx, goal)
		require.Error(t, err)
		assert.ErrorIs(t, err, task.ErrInvalidGoal)
		assert.Nil(t, result)
	}
}
