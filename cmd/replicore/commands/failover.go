package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/config"
	"github.com/replicore/replicore/pkg/orchestrator"
)

// resolveTestDuration picks the test window for a session: an explicit
// --duration flag wins, then the configured orchestrator default.
func resolveTestDuration(settings *config.Settings, flag int) int {
	if flag > 0 {
		return flag
	}
	if settings != nil && settings.Orchestrator.DefaultTestDurationMinutes > 0 {
		return settings.Orchestrator.DefaultTestDurationMinutes
	}
	return orchestrator.DefaultTestDurationMinutes
}

func newFailoverCommand(version string) *cobra.Command {
	var (
		failoverType      string
		duration          int
		finalSync         bool
		shutdownSource    bool
		reverseProtection bool
		force             bool
		confirmName       string
		skipPreflight     bool
	)

	cmd := &cobra.Command{
		Use:   "failover <group-id>",
		Short: "Fail over a protection group to the DR site",
		Long: `Fail over a protection group to the DR site, test or live.

The walk:
  - Runs preflight safety checks (blockers stop the walk)
  - Collects failover options (final sync, shutdown, reverse protection)
  - Live failovers require typing the exact group name to confirm
  - Submits the failover job and polls it to completion

Test failovers leave the DR VMs running for the requested duration and
are rolled back automatically when the window expires. Live failovers
may complete into an awaiting-commit state; finish them with
'replicore commit' or 'replicore rollback'.`,
		Example: `  # One-hour test failover
  replicore failover grp-payroll --type test --duration 60

  # Live failover, confirmed inline, sources powered off
  replicore failover grp-payroll --type live --confirm Payroll-Production --shutdown-source

  # Force past acknowledged blockers
  replicore failover grp-payroll --type test --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groupID := args[0]

			ft := orchestrator.FailoverType(failoverType)
			if ft != orchestrator.FailoverTest && ft != orchestrator.FailoverLive {
				return fmt.Errorf("invalid failover type %q (test or live)", failoverType)
			}

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			session, err := rt.machine.Begin(ctx, groupID, skipPreflight)
			if err != nil {
				return err
			}
			group := session.Group()

			if !skipPreflight {
				result, err := session.RunPreflight(ctx)
				if err != nil {
					if orchestrator.ClassOf(err) != orchestrator.ErrClassPreflightBlocked {
						return err
					}
					if result != nil && !jsonOutput {
						printPreflightResult(groupID, result)
					}
					if !force {
						return err
					}
					if ackErr := session.AcknowledgeBlockers(true); ackErr != nil {
						return ackErr
					}
					fmt.Printf("Proceeding despite %d blocker(s)\n", len(result.Blockers))
				} else if len(result.Warnings) > 0 && !jsonOutput {
					printPreflightResult(groupID, result)
				}
			}

			opts := orchestrator.DefaultFailoverOptions(ft)
			opts.FinalSync = finalSync
			opts.ShutdownSourceVMs = shutdownSource
			opts.ReverseProtection = reverseProtection
			opts.TestDurationMinutes = resolveTestDuration(rt.settings, duration)
			if err := session.SetOptions(opts); err != nil {
				return err
			}

			typed := confirmName
			if ft == orchestrator.FailoverLive && typed == "" {
				typed, err = promptConfirmation(group.Name)
				if err != nil {
					return err
				}
			}
			if err := session.Confirm(typed); err != nil {
				return err
			}

			onProgress := func(p orchestrator.ExecutionProgress) {
				if !jsonOutput && p.CurrentStep != "" {
					fmt.Printf("  [%3.0f%%] %s\n", p.Percent, p.CurrentStep)
				}
			}
			outcome, err := session.Execute(ctx, onProgress)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(outcome)
			}
			printOutcome(session, outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&failoverType, "type", "t", "test", "failover type: test or live")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "test duration in minutes (15-480)")
	cmd.Flags().BoolVar(&finalSync, "final-sync", true, "run a final replication before failing over")
	cmd.Flags().BoolVar(&shutdownSource, "shutdown-source", false, "power off source VMs before cutover (live only)")
	cmd.Flags().BoolVar(&reverseProtection, "reverse-protection", false, "re-protect in the opposite direction after a live failover")
	cmd.Flags().BoolVar(&force, "force", false, "acknowledge preflight blockers and proceed anyway")
	cmd.Flags().StringVar(&confirmName, "confirm", "", "group name confirmation for live failovers")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip the preflight evaluation")

	return cmd
}

// promptConfirmation asks the operator to type the group name. The typed
// text must match exactly, case and all.
func promptConfirmation(groupName string) (string, error) {
	fmt.Printf("\nThis is a LIVE failover. Type the group name (%s) to continue: ", groupName)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printOutcome(session *orchestrator.FailoverSession, outcome *orchestrator.FailoverOutcome) {
	event := session.Event()

	switch {
	case outcome.AwaitingCommit:
		fmt.Printf("\nFailover completed and is awaiting your decision.\n")
		fmt.Printf("  commit:   replicore commit %s\n", event.ID)
		fmt.Printf("  rollback: replicore rollback %s\n", event.ID)
	case outcome.Success:
		fmt.Printf("\nFailover succeeded (event %s)\n", event.ID)
		if event.CleanupScheduledAt != nil {
			fmt.Printf("Test window ends at %s; DR VMs roll back automatically.\n",
				event.CleanupScheduledAt.Format("15:04:05"))
			fmt.Printf("End it early with: replicore rollback %s\n", event.ID)
		}
	default:
		fmt.Printf("\nFailover failed (event %s)\n", event.ID)
		if outcome.Message != "" {
			fmt.Printf("  %s\n", outcome.Message)
		}
		for _, vm := range outcome.FailedVMs {
			fmt.Printf("  ✗ %s: %s\n", vm.Name, vm.Reason)
		}
	}
	if outcome.Duration > 0 {
		fmt.Printf("Executor reported duration: %s\n", outcome.Duration)
	}
}
