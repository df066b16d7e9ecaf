package stores_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/replicore/replicore/pkg/orchestrator"
	"github.com/replicore/replicore/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a store.
func ExampleNewSQLiteStore() {
	dir, _ := os.MkdirTemp("", "replicore-example")
	defer os.RemoveAll(dir)

	store, err := stores.NewSQLiteStore(stores.Config{
		Path: filepath.Join(dir, "example.db"),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateFailoverEvent demonstrates recording a failover
// event and walking it through its lifecycle.
func ExampleSQLiteStore_CreateFailoverEvent() {
	dir, _ := os.MkdirTemp("", "replicore-example")
	defer os.RemoveAll(dir)

	store, _ := stores.NewSQLiteStore(stores.Config{Path: filepath.Join(dir, "example.db")})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	_ = store.UpsertReplicationTarget(ctx, &orchestrator.ReplicationTarget{
		ID:           "tgt-src",
		Name:         "zfs-primary",
		Hostname:     "zfs-primary.example.com",
		HealthStatus: orchestrator.TargetHealthy,
	})
	_ = store.UpsertProtectionGroup(ctx, &orchestrator.ProtectionGroup{
		ID:         "grp-payroll",
		Name:       "Payroll-Production",
		Enabled:    true,
		RPOMinutes: 60,
		Status:     orchestrator.GroupStatusMeetingSLA,
		Priority:   1,
		TargetID:   "tgt-src",
	})

	event := &orchestrator.FailoverEvent{
		ID:                  "evt-001",
		GroupID:             "grp-payroll",
		FailoverType:        orchestrator.FailoverTest,
		Status:              orchestrator.EventPending,
		JobID:               "job-001",
		StartedAt:           time.Now(),
		TestDurationMinutes: 60,
	}
	if err := store.CreateFailoverEvent(ctx, event); err != nil {
		log.Fatal(err)
	}

	_ = store.UpdateFailoverEventStatus(ctx, "evt-001", orchestrator.EventInProgress, "")

	active, err := store.ActiveFailoverEvent(ctx, "grp-payroll")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Active event: %s (%s)\n", active.ID, active.Status)
	// Output: Active event: evt-001 (in_progress)
}
