package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/replicore/replicore/pkg/jobqueue"
)

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{125 * time.Second, "2m 5s"},
		{65 * time.Second, "1m 5s"},
		{59 * time.Second, "59s"},
		{time.Second, "1s"},
		{90 * time.Minute, "1h 30m"},
		{2 * time.Hour, "2h 0m"},
		{3*time.Hour + 59*time.Minute + 59*time.Second, "3h 59m"},
		{60 * time.Second, "1m 0s"},
		{0, CleanupPending},
		{-time.Second, CleanupPending},
		{-time.Hour, CleanupPending},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.remaining); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func testTimer(t *testing.T, clock *fakeClock, remaining time.Duration) (*TestFailoverLifecycleTimer, *fakeQueue, *fakeEventStore, *FailoverEvent) {
	t.Helper()
	deadline := clock.Now().Add(remaining)
	event := &FailoverEvent{
		ID:                  "evt-test",
		GroupID:             "grp-1",
		FailoverType:        FailoverTest,
		Status:              EventInProgress,
		TestDurationMinutes: int(remaining / time.Minute),
		CleanupScheduledAt:  &deadline,
	}
	q := newFakeQueue()
	q.script(jobqueue.TypeFailoverRollback, &jobqueue.Job{Status: jobqueue.StatusCompleted})
	store := newFakeEventStore()
	if err := store.CreateFailoverEvent(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	decisions := NewDecisionClient(q, store, testLogger(), nil, DecisionOptions{
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})
	timer, err := NewTestFailoverLifecycleTimer(event, decisions, clock, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewTestFailoverLifecycleTimer: %v", err)
	}
	return timer, q, store, event
}

func TestLifecycleCountdownProgression(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	timer, _, _, _ := testTimer(t, clock, 125*time.Second)

	if got := timer.Countdown(); got != "2m 5s" {
		t.Errorf("countdown = %q, want %q", got, "2m 5s")
	}

	clock.Advance(60 * time.Second)
	if got := timer.Countdown(); got != "1m 5s" {
		t.Errorf("countdown after 60s = %q, want %q", got, "1m 5s")
	}

	clock.Advance(126 * time.Second)
	if got := timer.Countdown(); got != CleanupPending {
		t.Errorf("countdown past deadline = %q, want %q", got, CleanupPending)
	}
	if got := timer.Remaining(); got != 0 {
		t.Errorf("Remaining past deadline = %v, want 0", got)
	}
}

func TestLifecycleRunEmitsTicks(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	timer, _, _, _ := testTimer(t, clock, 30*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticks := timer.Run(ctx)

	first, ok := <-ticks
	if !ok {
		t.Fatal("tick channel closed immediately")
	}
	if first.CleanupDue {
		t.Error("CleanupDue = true with 30m remaining")
	}
	if first.Display != "30m 0s" {
		t.Errorf("Display = %q, want %q", first.Display, "30m 0s")
	}

	clock.Advance(31 * time.Minute)
	deadline := time.After(3 * time.Second)
	for {
		select {
		case tick, ok := <-ticks:
			if !ok {
				t.Fatal("tick channel closed before cleanup became due")
			}
			if tick.CleanupDue {
				if tick.Display != CleanupPending {
					t.Errorf("due tick Display = %q, want %q", tick.Display, CleanupPending)
				}
				return
			}
		case <-deadline:
			t.Fatal("no cleanup-due tick observed")
		}
	}
}

func TestLifecycleEndNowSharesRollbackContract(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	timer, q, store, event := testTimer(t, clock, 30*time.Minute)

	if err := timer.EndNow(context.Background()); err != nil {
		t.Fatalf("EndNow: %v", err)
	}
	req := q.lastSubmit()
	if req.JobType != jobqueue.TypeFailoverRollback {
		t.Errorf("submitted %q, want rollback", req.JobType)
	}
	if req.TargetScope != event.ID {
		t.Errorf("target scope = %q, want event id %q", req.TargetScope, event.ID)
	}
	if store.status(event.ID) != EventRolledBack {
		t.Errorf("event status = %s, want %s", store.status(event.ID), EventRolledBack)
	}
}

func TestLifecycleRequiresTestEventWithDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	deadline := clock.Now().Add(time.Hour)

	if _, err := NewTestFailoverLifecycleTimer(
		&FailoverEvent{ID: "evt", FailoverType: FailoverLive, CleanupScheduledAt: &deadline},
		nil, clock, testLogger(), nil,
	); ClassOf(err) != ErrClassValidation {
		t.Errorf("live event accepted: %v", err)
	}

	if _, err := NewTestFailoverLifecycleTimer(
		&FailoverEvent{ID: "evt", FailoverType: FailoverTest},
		nil, clock, testLogger(), nil,
	); ClassOf(err) != ErrClassValidation {
		t.Errorf("event without deadline accepted: %v", err)
	}
}
