package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/store"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

var (
	// runOutput selects the result rendering: text or json
	runOutput string
	// runNoSave skips persisting the result
	runNoSave bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "output format: text or json")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not persist the result")
}

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run one automation goal through the pipeline",
	Long: `Run one natural-language goal through the plan/execute/verify pipeline
and render the result.

The goal may be given as several arguments; they are joined with spaces.
The result is persisted to the task store unless --no-save is set. The
exit code is 1 when verification fails.

Examples:
  # Run against the configured backend
  uipilot run "Enable Airplane Mode from Settings"

  # Unquoted goals work too
  uipilot run Open the camera and record a video

  # Machine-readable output, nothing persisted
  uipilot run --output json --no-save "Enable the wifi"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	goal := strings.Join(args, " ")

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logger, err := newLogger(cfg, tel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sup, cleanup, err := buildSupervisor(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := sup.Run(ctx, goal)
	if err != nil {
		return err
	}

	if !runNoSave {
		saveResult(ctx, cfg, logger, result)
	}

	if runOutput == "json" {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		renderResult(cmd.OutOrStdout(), result)
	}

	if !result.Verification.Success {
		return errVerificationFailed
	}
	return nil
}

// saveResult persists a finished run. The run already completed, so
// persistence problems are logged, never fatal.
func saveResult(ctx context.Context, cfg *config.Config, logger *logging.Logger, result *task.Result) {
	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Warn(ctx, "failed to open task store", zap.Error(err))
		return
	}
	defer func() { _ = st.Close() }()

	if err := st.Save(ctx, result); err != nil {
		logger.Warn(ctx, "failed to save task result",
			zap.String("id", result.ID), zap.Error(err))
	}
}
