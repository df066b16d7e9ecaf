package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/orchestrator"
)

func newCommitCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <event-id>",
		Short: "Commit a live failover awaiting its decision",
		Long: `Commit a completed live failover, making the DR site the permanent
home of the group's VMs. The decision is carried by a job and polled to
completion; only then is the failover event marked completed.`,
		Example: `  replicore commit 4f3a2c10-aaaa-bbbb-cccc-1234567890ab`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			event, err := rt.loadEvent(ctx, args[0])
			if err != nil {
				return err
			}
			if event.Status != orchestrator.EventAwaitingCommit {
				return fmt.Errorf("event %s is %s, not awaiting a decision", event.ID, event.Status)
			}

			if err := rt.decisions.Commit(ctx, event); err != nil {
				return err
			}
			fmt.Printf("Failover %s committed; the group now runs at the DR site.\n", event.ID)
			return nil
		},
	}
	return cmd
}

func newRollbackCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <event-id>",
		Short: "Roll back a failover, returning service to the source site",
		Long: `Roll back a failover. For a live failover awaiting its decision this
abandons the cutover. For a running test failover this ends the test
early, powering off the DR VMs and discarding test-window changes.`,
		Example: `  # Abandon a live cutover
  replicore rollback 4f3a2c10-aaaa-bbbb-cccc-1234567890ab

  # End a test failover before its window expires
  replicore rollback 9d1e77f0-dddd-eeee-ffff-0987654321fe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			event, err := rt.loadEvent(ctx, args[0])
			if err != nil {
				return err
			}
			if event.Status.IsTerminal() {
				return fmt.Errorf("event %s is already %s", event.ID, event.Status)
			}

			if err := rt.decisions.Rollback(ctx, event); err != nil {
				return err
			}
			fmt.Printf("Failover %s rolled back.\n", event.ID)
			return nil
		},
	}
	return cmd
}
