package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/jobqueue"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func rawDetails(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal details: %v", err)
	}
	return data
}

func TestClassifyPreflight(t *testing.T) {
	tests := []struct {
		name         string
		checks       map[string]jobqueue.RawCheck
		canForce     bool
		wantReady    bool
		wantBlockers int
		wantWarnings int
	}{
		{
			name: "all passed",
			checks: map[string]jobqueue.RawCheck{
				"target_health": {Passed: true},
				"ssh_trust":     {Passed: true},
			},
			wantReady: true,
		},
		{
			name: "failed warning keeps ready",
			checks: map[string]jobqueue.RawCheck{
				"target_health": {Passed: true},
				"test_overdue":  {Passed: false, IsWarning: true, Message: "test overdue"},
			},
			wantReady:    true,
			wantWarnings: 1,
		},
		{
			name: "failed non-warning blocks",
			checks: map[string]jobqueue.RawCheck{
				"target_health": {Passed: false, Message: "target unreachable"},
				"test_overdue":  {Passed: false, IsWarning: true},
			},
			wantReady:    false,
			wantBlockers: 1,
			wantWarnings: 1,
		},
		{
			name: "many warnings no blockers still ready",
			checks: map[string]jobqueue.RawCheck{
				"a": {Passed: false, IsWarning: true},
				"b": {Passed: false, IsWarning: true},
				"c": {Passed: false, IsWarning: true},
			},
			wantReady:    true,
			wantWarnings: 3,
		},
		{
			name:      "empty check map is ready",
			checks:    map[string]jobqueue.RawCheck{},
			wantReady: true,
		},
		{
			name: "can_force carried through",
			checks: map[string]jobqueue.RawCheck{
				"sync": {Passed: false},
			},
			canForce:     true,
			wantReady:    false,
			wantBlockers: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyPreflight(tt.checks, tt.canForce)
			if result.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", result.Ready, tt.wantReady)
			}
			if result.Ready != (len(result.Blockers) == 0) {
				t.Errorf("Ready = %v with %d blockers", result.Ready, len(result.Blockers))
			}
			if len(result.Blockers) != tt.wantBlockers {
				t.Errorf("blockers = %d, want %d", len(result.Blockers), tt.wantBlockers)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %d, want %d", len(result.Warnings), tt.wantWarnings)
			}
			if result.CanForce != tt.canForce {
				t.Errorf("CanForce = %v, want %v", result.CanForce, tt.canForce)
			}
		})
	}
}

func TestClassifyPreflightSortsByName(t *testing.T) {
	checks := map[string]jobqueue.RawCheck{
		"zeta":  {Passed: false, Message: "z"},
		"alpha": {Passed: false, Message: "a"},
		"mid":   {Passed: false, Message: "m"},
	}
	result := ClassifyPreflight(checks, false)
	want := []string{"alpha", "mid", "zeta"}
	if len(result.Blockers) != len(want) {
		t.Fatalf("blockers = %d, want %d", len(result.Blockers), len(want))
	}
	for i, name := range want {
		if result.Blockers[i].Name != name {
			t.Errorf("blocker[%d] = %q, want %q", i, result.Blockers[i].Name, name)
		}
	}
}

func newTestEvaluator(q *fakeQueue) *PreflightEvaluator {
	return NewPreflightEvaluator(q, testLogger(), nil, PreflightOptions{
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})
}

func TestPreflightRunCurrentResultKey(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusRunning},
		&jobqueue.Job{Status: jobqueue.StatusCompleted, Details: rawDetails(t, map[string]interface{}{
			"result": map[string]jobqueue.RawCheck{
				"replication": {Passed: true},
				"dr_network":  {Passed: false, Message: "no mapping"},
			},
			"can_force": true,
		})},
	)

	result, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ready {
		t.Error("Ready = true, want false")
	}
	if !result.CanForce {
		t.Error("CanForce = false, want true")
	}
	if got := q.lastSubmit().JobType; got != jobqueue.TypePreflightCheck {
		t.Errorf("submitted job type = %q", got)
	}
}

func TestPreflightRunLegacyResultKey(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusCompleted, Details: rawDetails(t, map[string]interface{}{
			"preflight_results": map[string]jobqueue.RawCheck{
				"replication": {Passed: true},
			},
		})},
	)

	result, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ready {
		t.Error("Ready = false, want true")
	}
}

func TestPreflightRunCompletedWithoutResults(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusCompleted},
	)

	_, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if ClassOf(err) != ErrClassJobFailed {
		t.Fatalf("error class = %q, want %q (err=%v)", ClassOf(err), ErrClassJobFailed, err)
	}
}

func TestPreflightRunJobFailed(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusFailed, Details: rawDetails(t, map[string]string{
			"error": "executor exploded",
		})},
	)

	_, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if ClassOf(err) != ErrClassJobFailed {
		t.Fatalf("error class = %q, want %q", ClassOf(err), ErrClassJobFailed)
	}
	var oe *OrchestrationError
	if !errors.As(err, &oe) || oe.Message != "executor exploded" {
		t.Errorf("message not surfaced verbatim: %v", err)
	}
}

func TestPreflightRunPollFailureIsTerminal(t *testing.T) {
	q := newFakeQueue()
	q.pollErr = errors.New("connection reset")

	_, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if ClassOf(err) != ErrClassPoll {
		t.Fatalf("error class = %q, want %q", ClassOf(err), ErrClassPoll)
	}
	if q.submitCount() != 1 {
		t.Errorf("submissions = %d, want 1 (no retry)", q.submitCount())
	}
}

func TestPreflightRunTimeout(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusRunning},
	)
	e := NewPreflightEvaluator(q, testLogger(), nil, PreflightOptions{
		PollInterval: time.Millisecond,
		Timeout:      20 * time.Millisecond,
	})

	_, err := e.Run(context.Background(), "grp-1")
	if ClassOf(err) != ErrClassTimeout {
		t.Fatalf("error class = %q, want %q", ClassOf(err), ErrClassTimeout)
	}
	if CodeOf(err) != ErrCodePreflightTimeout {
		t.Errorf("error code = %q, want %q", CodeOf(err), ErrCodePreflightTimeout)
	}
}

func TestPreflightEvaluateStreamsProgress(t *testing.T) {
	q := newFakeQueue()
	q.script(jobqueue.TypePreflightCheck,
		&jobqueue.Job{Status: jobqueue.StatusRunning, Details: rawDetails(t, map[string]interface{}{
			"current_step":     "checking ssh trust",
			"checks_completed": 2,
			"total_checks":     5,
		})},
		&jobqueue.Job{Status: jobqueue.StatusCompleted, Details: rawDetails(t, map[string]interface{}{
			"result": map[string]jobqueue.RawCheck{"ssh_trust": {Passed: true}},
		})},
	)

	var progress []PreflightProgress
	var result *PreflightResult
	for update := range newTestEvaluator(q).Evaluate(context.Background(), "grp-1") {
		if update.Progress != nil {
			progress = append(progress, *update.Progress)
		}
		if update.Result != nil {
			result = update.Result
		}
		if update.Err != nil {
			t.Fatalf("unexpected error update: %v", update.Err)
		}
	}
	if result == nil {
		t.Fatal("no terminal result update")
	}
	if len(progress) == 0 {
		t.Fatal("no progress updates")
	}
	if progress[0].CurrentStep != "checking ssh trust" || progress[0].TotalChecks != 5 {
		t.Errorf("progress = %+v", progress[0])
	}
}

func TestPreflightSubmissionRejected(t *testing.T) {
	q := newFakeQueue()
	q.submitErr = errors.New("queue full")

	_, err := newTestEvaluator(q).Run(context.Background(), "grp-1")
	if ClassOf(err) != ErrClassSubmission {
		t.Fatalf("error class = %q, want %q", ClassOf(err), ErrClassSubmission)
	}
}
