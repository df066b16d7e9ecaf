package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/orchestrator"
)

func newPreflightCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preflight <group-id>",
		Short: "Run preflight safety checks for a protection group",
		Long: `Run the executor's preflight safety checks for a protection group and
classify the results.

The evaluation:
  - Submits a preflight job to the executor's queue
  - Streams check progress while the executor works
  - Splits failed checks into blockers and warnings
  - Reports whether the group is ready to fail over`,
		Example: `  # Check a group before failing it over
  replicore preflight grp-payroll

  # Machine-readable output
  replicore preflight grp-payroll --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groupID := args[0]

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			var result *orchestrator.PreflightResult
			for update := range rt.preflight.Evaluate(ctx, groupID) {
				switch {
				case update.Err != nil:
					return update.Err
				case update.Result != nil:
					result = update.Result
				case update.Progress != nil && !jsonOutput:
					printPreflightProgress(update.Progress)
				}
			}
			if result == nil {
				return fmt.Errorf("preflight produced no result")
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printPreflightResult(groupID, result)

			if !result.Ready {
				return orchestrator.NewPreflightBlockedError(
					fmt.Sprintf("%d blocker(s) found", len(result.Blockers)), nil).
					WithGroup(groupID)
			}
			return nil
		},
	}
	return cmd
}

func printPreflightProgress(p *orchestrator.PreflightProgress) {
	if p.TotalChecks > 0 {
		fmt.Printf("  [%d/%d] %s\n", p.ChecksCompleted, p.TotalChecks, p.CurrentStep)
		return
	}
	if p.CurrentStep != "" {
		fmt.Printf("  ... %s\n", p.CurrentStep)
	}
}

func printPreflightResult(groupID string, result *orchestrator.PreflightResult) {
	fmt.Printf("\nPreflight for %s: ", groupID)
	if result.Ready {
		fmt.Println("READY")
	} else {
		fmt.Println("BLOCKED")
	}

	if len(result.Blockers) > 0 {
		fmt.Printf("\nBlockers (%d):\n", len(result.Blockers))
		for _, check := range result.Blockers {
			fmt.Printf("  ✗ %s: %s\n", check.Name, check.Message)
		}
		if result.CanForce {
			fmt.Println("\nThe executor permits forcing past these blockers (--force).")
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, check := range result.Warnings {
			fmt.Printf("  ! %s: %s\n", check.Name, check.Message)
		}
	}
	fmt.Printf("\n%d checks evaluated\n", len(result.Checks))
}
