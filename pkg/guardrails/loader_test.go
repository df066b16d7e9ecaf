package guardrails

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/orchestrator"
)

const operatorRego = `package operator.freeze

# Blocks live failovers that power off source VMs.
import rego.v1

deny contains msg if {
	input.config.failover_type == "live"
	input.config.shutdown_source_vms
	msg := "live failovers that shut down source VMs are frozen"
}`

const operatorManifest = `name: business-hours-freeze
description: Freeze destructive live failovers
level: deny
tags:
  - freeze
`

// writePolicyDir lays out an operator policy directory with one .rego file
// and its manifest sidecar.
func writePolicyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "freeze.rego"), []byte(operatorRego), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "freeze.yaml"), []byte(operatorManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

func TestLoadFromPaths(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	dir := writePolicyDir(t)

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "business-hours-freeze" {
		t.Errorf("name = %s", p.Name)
	}
	if p.Level != orchestrator.GuardrailDeny {
		t.Errorf("level = %s, want deny", p.Level)
	}
	if p.Description != "Freeze destructive live failovers" {
		t.Errorf("description = %q", p.Description)
	}
	if !p.Enabled {
		t.Error("policy not enabled by default")
	}
	if p.Source == "" {
		t.Error("source path not recorded")
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "plain.rego"), []byte(operatorRego), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("loaded %d policies, want 1", len(policies))
	}

	p := policies[0]
	if p.Name != "plain" {
		t.Errorf("name = %s, want filename stem", p.Name)
	}
	if p.Level != orchestrator.GuardrailWarn {
		t.Errorf("level = %s, want warn default", p.Level)
	}
	if p.Description != "Blocks live failovers that power off source VMs." {
		t.Errorf("description = %q", p.Description)
	}
}

func TestLoadFromMissingPath(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	_, err := loader.LoadFromPaths(context.Background(), []string{"/nonexistent/policies"})
	if err == nil {
		t.Fatal("missing path returned no error")
	}
}

func TestCacheInvalidation(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	dir := writePolicyDir(t)
	ctx := context.Background()

	if _, err := loader.LoadFromPaths(ctx, []string{dir}); err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}

	// Cached copy is served until the cache is cleared.
	updated := operatorRego + "\n# updated\n"
	if err := os.WriteFile(filepath.Join(dir, "freeze.rego"), []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite rego: %v", err)
	}
	policies, err := loader.LoadFromPaths(ctx, []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if policies[0].Rego == updated {
		t.Error("cache did not serve the original policy")
	}

	loader.ClearCache()
	policies, err = loader.LoadFromPaths(ctx, []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if policies[0].Rego != updated {
		t.Error("cleared cache did not reload the policy")
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "leading comments joined",
			content: "# first line\n# second line\npackage x\n",
			want:    "first line second line",
		},
		{
			name:    "no comments",
			content: "package x\n\ndeny contains msg if { msg := \"x\" }\n",
			want:    "",
		},
		{
			name:    "stops after code begins",
			content: "# head\npackage x\n# trailing\n",
			want:    "head",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.want {
				t.Errorf("extractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}
