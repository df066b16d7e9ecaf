package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
	logLevel   string
	logFormat  string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "replicore",
		Short: "Replicore - VM disaster recovery failover orchestration",
		Long: `Replicore orchestrates disaster recovery failovers for replicated VM
protection groups. It drives an external executor through an async job
queue: preflight safety checks, test and live failovers, commit/rollback
decisions, and test-failover cleanup timers.

Features:
  - Preflight safety evaluation with blocker/warning classification
  - Test failovers with bounded duration and automatic cleanup windows
  - Live failovers gated by typed group-name confirmation
  - Commit/rollback decisions for reversible cutovers
  - SLA diagnostics for groups missing their replication targets
  - Rego guardrail policies evaluated before any job is submitted`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "replicore.cue", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override the configured log format (console, json)")

	// Add subcommands
	rootCmd.AddCommand(newPreflightCommand(version))
	rootCmd.AddCommand(newFailoverCommand(version))
	rootCmd.AddCommand(newCommitCommand(version))
	rootCmd.AddCommand(newRollbackCommand(version))
	rootCmd.AddCommand(newStatusCommand(version))
	rootCmd.AddCommand(newDiagnoseCommand(version))
	rootCmd.AddCommand(newTrustCommand(version))
	rootCmd.AddCommand(newPoliciesCommand(version))

	return rootCmd
}
