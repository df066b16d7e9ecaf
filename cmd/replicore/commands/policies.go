package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPoliciesCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect the guardrail policies gating failover submission",
		Long: `Inspect the guardrail policies evaluated before every failover
submission.

Built-in policies ship with the binary; operator policies are loaded
from the configured policy directories and reloaded on change.`,
	}

	cmd.AddCommand(newPoliciesListCommand(version))
	cmd.AddCommand(newPoliciesShowCommand(version))
	return cmd
}

func newPoliciesListCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded guardrail policies",
		Example: `  # List every loaded policy with its level and source
  replicore policies list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if rt.policies == nil {
				return fmt.Errorf("guardrails are disabled in the configuration")
			}

			policies := rt.policies.ListPolicies()
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(policies)
			}

			fmt.Printf("%-32s %-6s %-8s %s\n", "NAME", "LEVEL", "ENABLED", "SOURCE")
			for _, p := range policies {
				source := p.Source
				if source == "" {
					source = "builtin"
				}
				fmt.Printf("%-32s %-6s %-8t %s\n", p.Name, p.Level, p.Enabled, source)
			}
			return nil
		},
	}
}

func newPoliciesShowCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one guardrail policy in full",
		Example: `  # Print a policy's metadata and Rego source
  replicore policies show live-failover-paused-group`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			if rt.policies == nil {
				return fmt.Errorf("guardrails are disabled in the configuration")
			}

			policy, err := rt.policies.GetPolicy(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(policy)
			}

			fmt.Printf("Name:        %s\n", policy.Name)
			fmt.Printf("Level:       %s\n", policy.Level)
			fmt.Printf("Enabled:     %t\n", policy.Enabled)
			if policy.Description != "" {
				fmt.Printf("Description: %s\n", policy.Description)
			}
			if len(policy.Tags) > 0 {
				fmt.Printf("Tags:        %s\n", strings.Join(policy.Tags, ", "))
			}
			if policy.Source != "" {
				fmt.Printf("Source:      %s\n", policy.Source)
			}
			fmt.Println()
			fmt.Println(policy.Rego)
			return nil
		},
	}
}
