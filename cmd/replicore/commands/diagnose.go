package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/diagnostics"
)

// diagnosisReport joins each raised diagnosis with its catalog definition
// for display.
type diagnosisReport struct {
	GroupID string           `json:"group_id"`
	Results []diagnosisEntry `json:"results"`
	Healthy bool             `json:"healthy"`
}

type diagnosisEntry struct {
	diagnostics.Result
	Title       string   `json:"title"`
	Impact      string   `json:"impact,omitempty"`
	Remediation []string `json:"remediation,omitempty"`
}

func newDiagnoseCommand(version string) *cobra.Command {
	var syncHistory int

	cmd := &cobra.Command{
		Use:   "diagnose <group-id>",
		Short: "Explain why a protection group is or is not meeting its SLA",
		Long: `Evaluate the SLA diagnostics rules against a protection group's
current state.

Each raised diagnosis names a root cause with its severity, impact and
remediation steps. The evaluation is read-only: it inspects local state
and submits nothing to the executor.`,
		Example: `  # Explain a group's SLA posture
  replicore diagnose grp-payroll

  # Widen the sync-failure lookback
  replicore diagnose grp-payroll --sync-history 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groupID := args[0]

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			snap, err := rt.store.LoadDiagnosticsSnapshot(ctx, groupID, syncHistory)
			if err != nil {
				return err
			}

			results := diagnostics.Analyze(diagnostics.Input{
				Group:          snap.Group,
				Target:         snap.Target,
				PartnerTarget:  snap.PartnerTarget,
				VMs:            snap.VMs,
				RecentSyncJobs: snap.RecentSyncJobs,
				Now:            time.Now(),
			})
			recordDiagnosis(rt, groupID, results)

			report := diagnosisReport{
				GroupID: groupID,
				Healthy: len(results) == 0,
				Results: make([]diagnosisEntry, 0, len(results)),
			}
			for _, r := range results {
				entry := diagnosisEntry{Result: r}
				if def := diagnostics.Describe(r.Code); def != nil {
					entry.Title = def.Title
					entry.Impact = def.Impact
					entry.Remediation = def.Remediation
				}
				report.Results = append(report.Results, entry)
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(report)
			}
			printDiagnosisReport(&report)
			return nil
		},
	}

	cmd.Flags().IntVar(&syncHistory, "sync-history", 10, "number of recent sync jobs to evaluate")
	return cmd
}

// recordDiagnosis feeds the evaluation into metrics and the event stream.
func recordDiagnosis(rt *runtime, groupID string, results []diagnostics.Result) {
	if m := rt.telemetry.Metrics; m != nil {
		m.RecordDiagnosticsEvaluation()
		for _, r := range results {
			m.RecordDiagnosisRaised(r.Code, string(r.Severity))
		}
	}
	if ev := rt.telemetry.Events; ev != nil {
		for _, r := range results {
			title := r.Code
			if def := diagnostics.Describe(r.Code); def != nil {
				title = def.Title
			}
			_ = ev.PublishDiagnosisRaised(groupID, r.Code, string(r.Severity), title)
		}
	}
}

func printDiagnosisReport(report *diagnosisReport) {
	if report.Healthy {
		fmt.Printf("Group %s: no issues found\n", report.GroupID)
		return
	}

	fmt.Printf("Group %s: %d issue(s) found\n\n", report.GroupID, len(report.Results))
	for _, entry := range report.Results {
		marker := "!"
		if entry.Severity == diagnostics.SeverityCritical {
			marker = "✗"
		}
		fmt.Printf("%s [%s] %s\n", marker, entry.Severity, entry.Title)
		if entry.Impact != "" {
			fmt.Printf("    Impact: %s\n", entry.Impact)
		}
		for i, step := range entry.Remediation {
			fmt.Printf("    %d. %s\n", i+1, step)
		}
		fmt.Println()
	}
}
