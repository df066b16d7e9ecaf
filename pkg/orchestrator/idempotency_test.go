package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/replicore/replicore/pkg/jobqueue"
)

// Every submission must carry a fresh idempotency key so the executor can
// de-duplicate redelivered requests without collapsing distinct runs.
func TestSubmissionsCarryIdempotencyKeys(t *testing.T) {
	t.Run("preflight", func(t *testing.T) {
		q := newFakeQueue()
		completed := &jobqueue.Job{Status: jobqueue.StatusCompleted, Details: rawDetails(t, map[string]interface{}{
			"result": map[string]jobqueue.RawCheck{"replication": {Passed: true}},
		})}
		q.script(jobqueue.TypePreflightCheck, completed, completed)

		e := NewPreflightEvaluator(q, testLogger(), nil, PreflightOptions{
			PollInterval: time.Millisecond,
			Timeout:      time.Second,
		})
		for i := 0; i < 2; i++ {
			if _, err := e.Run(context.Background(), "grp-1"); err != nil {
				t.Fatalf("Run %d: %v", i, err)
			}
		}

		first, second := q.submits[0].IdempotencyKey, q.submits[1].IdempotencyKey
		if first == "" || second == "" {
			t.Fatal("preflight submission missing idempotency key")
		}
		if first == second {
			t.Errorf("idempotency key %q reused across runs", first)
		}
	})

	t.Run("execute", func(t *testing.T) {
		q := newFakeQueue()
		q.script(jobqueue.TypeFailoverExecute, completedJob(t, nil))
		m := testMachine(q, newFakeEventStore(), nil)

		session := beginSession(t, m)
		advanceToConfirm(t, session, FailoverOptions{FailoverType: FailoverTest, TestDurationMinutes: 30, FinalSync: true})
		if err := session.Confirm(""); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if _, err := session.Execute(context.Background(), nil); err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if q.lastSubmit().IdempotencyKey == "" {
			t.Error("execute submission missing idempotency key")
		}
	})

	t.Run("decision", func(t *testing.T) {
		q := newFakeQueue()
		q.script(jobqueue.TypeFailoverCommit, &jobqueue.Job{Status: jobqueue.StatusCompleted})
		store := newFakeEventStore()

		event := &FailoverEvent{ID: "evt-1", GroupID: "grp-1", FailoverType: FailoverTest, Status: EventInProgress}
		if err := store.CreateFailoverEvent(context.Background(), event); err != nil {
			t.Fatalf("CreateFailoverEvent: %v", err)
		}

		c := NewDecisionClient(q, store, testLogger(), nil, DecisionOptions{
			PollInterval: time.Millisecond,
			Timeout:      time.Second,
		})
		if err := c.Commit(context.Background(), event); err != nil {
			t.Fatalf("Commit: %v", err)
		}

		if q.lastSubmit().IdempotencyKey == "" {
			t.Error("decision submission missing idempotency key")
		}
	})
}
