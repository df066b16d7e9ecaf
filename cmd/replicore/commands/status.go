package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/calc"
	"github.com/replicore/replicore/pkg/orchestrator"
)

// groupStatus is the machine-readable shape of the status command output.
type groupStatus struct {
	Group        *orchestrator.ProtectionGroup `json:"group"`
	CurrentRPO   string                        `json:"current_rpo"`
	RPOBand      calc.Band                     `json:"rpo_band"`
	ActiveEvent  *orchestrator.FailoverEvent   `json:"active_event,omitempty"`
	Countdown    string                        `json:"countdown,omitempty"`
	RecentEvents []*orchestrator.FailoverEvent `json:"recent_events,omitempty"`
}

func newStatusCommand(version string) *cobra.Command {
	var (
		watch        bool
		historyLimit int
	)

	cmd := &cobra.Command{
		Use:   "status <group-id>",
		Short: "Show protection group status and any failover in flight",
		Long: `Show the current posture of a protection group.

The report includes:
  - Group status and the observed RPO against its target
  - The active failover event, if one is in flight
  - The test-window countdown for a running test failover
  - Recent failover history`,
		Example: `  # One-shot status report
  replicore status grp-payroll

  # Follow the test-window countdown until cleanup fires
  replicore status grp-payroll --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groupID := args[0]

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			group, err := rt.store.GetGroup(ctx, groupID)
			if err != nil {
				return err
			}

			now := time.Now()
			status := groupStatus{
				Group:      group,
				CurrentRPO: calc.CurrentRPO(group.CurrentRPOSeconds, group.LastReplicationAt, now).Round(time.Second).String(),
				RPOBand:    calc.RPOBand(calc.CurrentRPO(group.CurrentRPOSeconds, group.LastReplicationAt, now), group.RPOMinutes),
			}

			active, err := rt.store.ActiveFailoverEvent(ctx, groupID)
			if err != nil {
				return err
			}
			status.ActiveEvent = active

			var timer *orchestrator.TestFailoverLifecycleTimer
			if active != nil && active.FailoverType == orchestrator.FailoverTest && active.CleanupScheduledAt != nil {
				timer, err = orchestrator.NewTestFailoverLifecycleTimer(active, rt.decisions, nil, rt.logger, rt.instr)
				if err != nil {
					return err
				}
				status.Countdown = timer.Countdown()
			}

			recent, err := rt.store.ListFailoverEventsByGroup(ctx, groupID, historyLimit)
			if err != nil {
				return err
			}
			status.RecentEvents = recent

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(status)
			}
			printGroupStatus(&status)

			if watch && timer != nil {
				return followCountdown(ctx, timer)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow the test-window countdown until it elapses")
	cmd.Flags().IntVar(&historyLimit, "history", 5, "number of recent failover events to show")
	return cmd
}

func printGroupStatus(s *groupStatus) {
	fmt.Printf("Group:    %s (%s)\n", s.Group.Name, s.Group.ID)
	fmt.Printf("Status:   %s\n", s.Group.Status)
	fmt.Printf("Priority: %d\n", s.Group.Priority)
	fmt.Printf("RPO:      %s observed / %dm target (%s)\n", s.CurrentRPO, s.Group.RPOMinutes, s.RPOBand)
	if s.Group.LastTestAt != nil {
		fmt.Printf("Tested:   %s\n", s.Group.LastTestAt.Format(time.RFC3339))
	}

	if s.ActiveEvent != nil {
		fmt.Println()
		fmt.Printf("Active %s failover: %s (%s)\n", s.ActiveEvent.FailoverType, s.ActiveEvent.ID, s.ActiveEvent.Status)
		if s.Countdown != "" {
			fmt.Printf("Test window: %s remaining\n", s.Countdown)
		}
	}

	if len(s.RecentEvents) > 0 {
		fmt.Println()
		fmt.Println("Recent failovers:")
		for _, ev := range s.RecentEvents {
			line := fmt.Sprintf("  %s  %-4s  %-15s  %s", ev.StartedAt.Format("2006-01-02 15:04"), ev.FailoverType, ev.Status, ev.ID)
			fmt.Println(line)
		}
	}
}

// followCountdown streams timer ticks to stdout until the test window
// elapses or the context is cancelled.
func followCountdown(ctx context.Context, timer *orchestrator.TestFailoverLifecycleTimer) error {
	for tick := range timer.Run(ctx) {
		if tick.CleanupDue {
			fmt.Println("\nTest window elapsed, executor cleanup pending")
			return nil
		}
		fmt.Printf("\rTest window: %s remaining ", tick.Display)
	}
	fmt.Println()
	return ctx.Err()
}
