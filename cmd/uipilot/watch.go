package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/spool"
	"github.com/fyrsmithlabs/uipilot/internal/store"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a spool directory for goal files",
	Long: `Watch a spool directory and run every new goal file through the
pipeline.

Each matching file (default *.txt) is read as one goal: its first
non-empty line. The run's result is persisted to the task store and a
<name>.result.json file is written beside the goal file.

The directory argument overrides the configured spool dir. Watching
continues until SIGINT/SIGTERM.

Examples:
  # Watch the configured spool directory
  uipilot watch

  # Watch an explicit directory
  uipilot watch ./spool`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Spool.Dir = args[0]
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

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sup, cleanup, err := buildSupervisor(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := spool.NewWatcher(&spool.WatcherConfig{
		Dir:     cfg.Spool.Dir,
		Pattern: cfg.Spool.Pattern,
	}, logger)
	if err != nil {
		return err
	}

	runner, err := spool.NewRunner(sup, st, logger)
	if err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for %s goal files. Ctrl+C to stop.\n",
		cfg.Spool.Dir, cfg.Spool.Pattern)

	if err := runner.Serve(ctx, watcher.Events()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
