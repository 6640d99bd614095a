package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/uipilot/internal/backend"
	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/llm"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/planner"
	"github.com/fyrsmithlabs/uipilot/internal/store"
	"github.com/fyrsmithlabs/uipilot/internal/supervisor"
	"github.com/fyrsmithlabs/uipilot/internal/verifier"
)

// buildPipeline wires a complete offline pipeline: scripted generator,
// simulator backend with no artificial delay, real planner, executor,
// verifier, and supervisor.
func buildPipeline(t *testing.T, artifactDir string) supervisor.Service {
	t.Helper()

	logger := logging.NewNop()

	sim := backend.NewSimulator(&backend.SimulatorConfig{StepDelay: 0}, logger)

	plannerSvc, err := planner.NewService(llm.NewScripted(), logger)
	require.NoError(t, err, "Should create planner")

	ecfg := executor.DefaultServiceConfig()
	ecfg.RetryDelay = 10 * time.Millisecond
	ecfg.ArtifactDir = artifactDir
	executorSvc, err := executor.NewService(ecfg, sim, logger)
	require.NoError(t, err, "Should create executor")

	verifierSvc, err := verifier.NewService(verifier.DefaultServiceConfig(), logger)
	require.NoError(t, err, "Should create verifier")

	sup, err := supervisor.NewService(plannerSvc, executorSvc, verifierSvc, logger)
	require.NoError(t, err, "Should create supervisor")

	return sup
}

// openTestStore opens a SQLite store in a temp directory and closes it
// when the test ends.
func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(t.TempDir()+"/tasks.db", logging.NewNop())
	require.NoError(t, err, "Should open test store")
	t.Cleanup(func() { _ = st.Close() })

	return st
}
