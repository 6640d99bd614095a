package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/uipilot/internal/config"
	"github.com/fyrsmithlabs/uipilot/internal/store"
)

var (
	// historyLimit caps the number of listed tasks
	historyLimit int
	// historyOutput selects the listing format: text or json
	historyOutput string
	// showOutput selects the result format: text or json
	showOutput string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of tasks to list")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "output format: text or json")

	showCmd.Flags().StringVarP(&showOutput, "output", "o", "text", "output format: text or json")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored task results",
	Long: `List stored task results, newest first.

Examples:
  # Last 20 tasks
  uipilot history

  # Last 5, as JSON
  uipilot history --limit 5 --output json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored task result",
	Long: `Show the full stored result of one task by its ID.

Examples:
  # Full styled view
  uipilot show 3f2a9c1b-7e44-4be1-9c90-5a2d8f0e6b11

  # Raw JSON
  uipilot show --output json 3f2a9c1b-7e44-4be1-9c90-5a2d8f0e6b11`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer func() { _ = st.Close() }()

	entries, err := st.List(ctx, historyLimit)
	if err != nil {
		return err
	}

	if historyOutput == "json" {
		return writeJSON(cmd.OutOrStdout(), entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored tasks.")
		return nil
	}
	renderEntries(cmd.OutOrStdout(), entries)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer func() { _ = st.Close() }()

	result, err := st.Get(ctx, args[0])
	if err != nil {
		return err
	}

	if showOutput == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	renderResult(cmd.OutOrStdout(), result)
	return nil
}
