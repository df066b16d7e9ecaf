package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/replicore/replicore/pkg/trustprobe"
)

func newTrustCommand(version string) *cobra.Command {
	var (
		user       string
		keyPath    string
		knownHosts string
		port       int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "trust <target-id>",
		Short: "Probe SSH trust with a replication appliance",
		Long: `Run an SSH handshake against a replication appliance and record the
outcome.

The probe dials the appliance, verifies its host key against
known_hosts, authenticates with the configured private key and
disconnects. The target's trust flag is refreshed from the result.
No commands run on the appliance.`,
		Example: `  # Probe the DR appliance as the replication user
  replicore trust tgt-dr --user zfsrepl

  # Use a dedicated key and known_hosts file
  replicore trust tgt-dr --user zfsrepl --key ~/.ssh/replicore_ed25519 --known-hosts /etc/replicore/known_hosts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			targetID := args[0]

			rt, err := newRuntime(ctx, version)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			target, err := rt.store.GetTarget(ctx, targetID)
			if err != nil {
				return err
			}

			cfg := trustprobe.DefaultConfig(user)
			cfg.Port = port
			cfg.Timeout = timeout
			if keyPath != "" {
				cfg.PrivateKeyPath = keyPath
			}
			if knownHosts != "" {
				cfg.KnownHostsPath = knownHosts
			}

			prober, err := trustprobe.NewProber(cfg, rt.store, rt.logger, rt.telemetry.Metrics)
			if err != nil {
				return err
			}

			result, err := prober.Probe(ctx, target)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			switch result.Status {
			case trustprobe.StatusTrusted:
				fmt.Printf("✓ %s is trusted (%s, %s)\n", target.Name, result.Host, result.Latency.Round(time.Millisecond))
			case trustprobe.StatusUntrusted:
				fmt.Printf("✗ %s rejected the handshake: %s\n", target.Name, result.Message)
			default:
				fmt.Printf("✗ %s is unreachable: %s\n", target.Name, result.Message)
			}
			if result.Status != trustprobe.StatusTrusted {
				return fmt.Errorf("trust probe failed for target %s", targetID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "SSH user on the appliance (required)")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "private key path (default: discover in ~/.ssh)")
	cmd.Flags().StringVar(&knownHosts, "known-hosts", "", "known_hosts path (default: ~/.ssh/known_hosts)")
	cmd.Flags().IntVarP(&port, "port", "p", 22, "SSH port")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "handshake timeout")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
