package guardrails

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/orchestrator"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	if len(policies) == 0 {
		t.Fatal("No built-in policies loaded")
	}

	expected := []string{
		"live-failover-paused-group",
		"commit-decision-pending",
		"reverse-protection-priority",
	}
	for _, want := range expected {
		found := false
		for _, p := range policies {
			if p.Name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected built-in policy not found: %s", want)
		}
	}
}

func TestEvaluateFailover_PausedGroup(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		status        orchestrator.GroupStatus
		failoverType  orchestrator.FailoverType
		force         bool
		expectAllowed bool
	}{
		{
			name:          "live on paused group denied",
			status:        orchestrator.GroupStatusPaused,
			failoverType:  orchestrator.FailoverLive,
			expectAllowed: false,
		},
		{
			name:          "live on paused group with force allowed",
			status:        orchestrator.GroupStatusPaused,
			failoverType:  orchestrator.FailoverLive,
			force:         true,
			expectAllowed: true,
		},
		{
			name:          "test on paused group allowed",
			status:        orchestrator.GroupStatusPaused,
			failoverType:  orchestrator.FailoverTest,
			expectAllowed: true,
		},
		{
			name:          "live on healthy group allowed",
			status:        orchestrator.GroupStatusMeetingSLA,
			failoverType:  orchestrator.FailoverLive,
			expectAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := eng.EvaluateFailover(ctx, &orchestrator.GuardrailInput{
				Group: &orchestrator.ProtectionGroup{
					ID:     "grp-1",
					Name:   "payroll",
					Status: tt.status,
				},
				Config: orchestrator.FailoverConfig{
					ProtectionGroupID: "grp-1",
					FailoverType:      tt.failoverType,
					Force:             tt.force,
				},
			})
			if err != nil {
				t.Fatalf("EvaluateFailover: %v", err)
			}
			if decision.Allowed != tt.expectAllowed {
				t.Errorf("allowed = %v, want %v (violations: %+v)",
					decision.Allowed, tt.expectAllowed, decision.Violations)
			}
		})
	}
}

func TestEvaluateFailover_CommitPending(t *testing.T) {
	eng := newTestEngine(t)

	decision, err := eng.EvaluateFailover(context.Background(), &orchestrator.GuardrailInput{
		Group: &orchestrator.ProtectionGroup{
			ID:     "grp-1",
			Name:   "payroll",
			Status: orchestrator.GroupStatusFailedOver,
		},
		Config: orchestrator.FailoverConfig{
			ProtectionGroupID: "grp-1",
			FailoverType:      orchestrator.FailoverTest,
		},
		ActiveEvent: &orchestrator.FailoverEvent{
			ID:     "evt-1",
			Status: orchestrator.EventAwaitingCommit,
		},
	})
	if err != nil {
		t.Fatalf("EvaluateFailover: %v", err)
	}
	if decision.Allowed {
		t.Error("failover allowed while a commit decision is pending")
	}
	if reasons := decision.DenyReasons(); len(reasons) != 1 {
		t.Errorf("deny reasons = %v", reasons)
	}
}

func TestEvaluateFailover_ReverseProtectionWarning(t *testing.T) {
	eng := newTestEngine(t)

	decision, err := eng.EvaluateFailover(context.Background(), &orchestrator.GuardrailInput{
		Group: &orchestrator.ProtectionGroup{
			ID:       "grp-1",
			Name:     "payroll",
			Status:   orchestrator.GroupStatusMeetingSLA,
			Priority: 1,
		},
		Config: orchestrator.FailoverConfig{
			ProtectionGroupID: "grp-1",
			FailoverType:      orchestrator.FailoverLive,
			ReverseProtection: false,
		},
	})
	if err != nil {
		t.Fatalf("EvaluateFailover: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("warning blocked submission: %+v", decision.Violations)
	}
	if len(decision.Violations) != 1 || decision.Violations[0].Level != orchestrator.GuardrailWarn {
		t.Errorf("violations = %+v, want one warning", decision.Violations)
	}
}

func TestEvaluateFailover_CleanRequestHasNoViolations(t *testing.T) {
	eng := newTestEngine(t)

	decision, err := eng.EvaluateFailover(context.Background(), &orchestrator.GuardrailInput{
		Group: &orchestrator.ProtectionGroup{
			ID:       "grp-1",
			Name:     "payroll",
			Status:   orchestrator.GroupStatusMeetingSLA,
			Priority: 2,
		},
		Config: orchestrator.FailoverConfig{
			ProtectionGroupID:   "grp-1",
			FailoverType:        orchestrator.FailoverTest,
			FinalSync:           true,
			TestDurationMinutes: 60,
		},
	})
	if err != nil {
		t.Fatalf("EvaluateFailover: %v", err)
	}
	if !decision.Allowed || len(decision.Violations) != 0 {
		t.Errorf("decision = %+v, want clean allow", decision)
	}
}

func TestSetPolicyEnabled(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.SetPolicyEnabled("live-failover-paused-group", false); err != nil {
		t.Fatalf("SetPolicyEnabled: %v", err)
	}

	decision, err := eng.EvaluateFailover(context.Background(), &orchestrator.GuardrailInput{
		Group: &orchestrator.ProtectionGroup{
			ID:     "grp-1",
			Name:   "payroll",
			Status: orchestrator.GroupStatusPaused,
		},
		Config: orchestrator.FailoverConfig{
			ProtectionGroupID: "grp-1",
			FailoverType:      orchestrator.FailoverLive,
		},
	})
	if err != nil {
		t.Fatalf("EvaluateFailover: %v", err)
	}
	if !decision.Allowed {
		t.Error("disabled policy still denied the request")
	}

	if err := eng.SetPolicyEnabled("nope", true); err == nil {
		t.Error("unknown policy toggle returned no error")
	}
}

func TestOperatorPolicyOverridesViaManifest(t *testing.T) {
	eng := newTestEngine(t)
	dir := writePolicyDir(t)

	if err := eng.LoadOperatorPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadOperatorPolicies: %v", err)
	}

	policy, err := eng.GetPolicy("business-hours-freeze")
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if policy.Level != orchestrator.GuardrailDeny {
		t.Errorf("manifest level not applied: %s", policy.Level)
	}

	decision, err := eng.EvaluateFailover(context.Background(), &orchestrator.GuardrailInput{
		Group: &orchestrator.ProtectionGroup{
			ID:     "grp-1",
			Name:   "payroll",
			Status: orchestrator.GroupStatusMeetingSLA,
		},
		Config: orchestrator.FailoverConfig{
			ProtectionGroupID: "grp-1",
			FailoverType:      orchestrator.FailoverLive,
			ShutdownSourceVMs: true,
		},
	})
	if err != nil {
		t.Fatalf("EvaluateFailover: %v", err)
	}
	if decision.Allowed {
		t.Errorf("operator policy did not deny: %+v", decision.Violations)
	}
}
