// Uipilot runs natural-language UI automation goals through a
// plan/execute/verify pipeline.
//
// A goal such as "Enable Airplane Mode from Settings" is decomposed into
// ordered UI steps, each step is dispatched to the configured backend
// (simulator, device agent, or browser console), and the collected
// outcomes are verified against the goal's keywords.
//
// Usage:
//
//	# Run one goal
//	uipilot run "Enable Airplane Mode from Settings"
//
//	# Serve the HTTP API
//	uipilot serve
//
//	# Watch a spool directory for goal files
//	uipilot watch ./spool
//
// Configuration is loaded from ~/.config/uipilot/config.yaml (override
// with --config) and UIPILOT_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the --config flag value shared by all commands.
var configPath string

// errVerificationFailed marks a completed run whose verification did not
// pass. The rendered result already tells the story, so main exits 1
// without printing another error line.
var errVerificationFailed = errors.New("verification failed")

var rootCmd = &cobra.Command{
	Use:   "uipilot",
	Short: "Natural-language UI automation pipeline",
	Long: `uipilot turns a natural-language goal into ordered UI steps, dispatches
them to a backend, and verifies the outcomes against the goal.

Results are persisted to a local SQLite store and can be inspected with
the history and show commands, or served over HTTP with serve.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/uipilot/config.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
