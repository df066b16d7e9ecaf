package orchestrator

import (
	"time"
)

// GroupStatus is the derived status of a protection group.
type GroupStatus string

const (
	// GroupStatusMeetingSLA indicates the group is within its RPO target.
	GroupStatusMeetingSLA GroupStatus = "meeting_sla"

	// GroupStatusNotMeetingSLA indicates the observed RPO exceeds the target.
	GroupStatusNotMeetingSLA GroupStatus = "not_meeting_sla"

	// GroupStatusPaused indicates replication is administratively paused.
	GroupStatusPaused GroupStatus = "paused"

	// GroupStatusError indicates the last replication attempt errored.
	GroupStatusError GroupStatus = "error"

	// GroupStatusSyncing indicates a replication job is currently running.
	GroupStatusSyncing GroupStatus = "syncing"

	// GroupStatusFailedOver indicates the group is running at the DR site.
	GroupStatusFailedOver GroupStatus = "failed_over"
)

// ProtectionGroup is a named set of VMs replicated and failed over together.
// This core never writes group state directly; the external executor mutates
// it in response to jobs submitted here, so reads may be stale for a few
// seconds after an action.
type ProtectionGroup struct {
	// ID is the unique identifier for this group.
	ID string `json:"id"`

	// Name is the human-readable group name. The live-failover confirmation
	// gate compares against this string exactly.
	Name string `json:"name"`

	// Enabled is false when the group is administratively paused.
	Enabled bool `json:"enabled"`

	// RPOMinutes is the recovery point objective target in minutes.
	RPOMinutes int `json:"rpo_minutes"`

	// CurrentRPOSeconds is the observed RPO in seconds, if the replication
	// layer has reported one. Zero means not reported.
	CurrentRPOSeconds float64 `json:"current_rpo_seconds,omitempty"`

	// Status is the derived group status.
	Status GroupStatus `json:"status"`

	// Priority orders groups for recovery (1 is highest).
	Priority int `json:"priority"`

	// TargetID references the source replication target (ZFS appliance).
	TargetID string `json:"target_id"`

	// LastReplicationAt is when the last successful sync completed.
	LastReplicationAt *time.Time `json:"last_replication_at,omitempty"`

	// LastTestAt is when the last test failover was run.
	LastTestAt *time.Time `json:"last_test_at,omitempty"`

	// TestReminderDays is how many days may pass between test failovers
	// before the group is flagged as overdue for testing.
	TestReminderDays int `json:"test_reminder_days"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the group was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetHealth is the health status of a replication target.
type TargetHealth string

const (
	// TargetHealthy indicates the appliance is reachable and reporting healthy.
	TargetHealthy TargetHealth = "healthy"

	// TargetDegraded indicates the appliance is reachable but impaired.
	TargetDegraded TargetHealth = "degraded"

	// TargetUnhealthy indicates the appliance is unreachable or failing.
	TargetUnhealthy TargetHealth = "unhealthy"

	// TargetUnknown indicates no health report is available.
	TargetUnknown TargetHealth = "unknown"
)

// ReplicationTarget is a ZFS appliance record. Two targets related by
// PartnerTargetID form a source/DR pair; the pairing is a preflight
// prerequisite.
type ReplicationTarget struct {
	// ID is the unique identifier for this target.
	ID string `json:"id"`

	// Name is the human-readable appliance name.
	Name string `json:"name"`

	// Hostname is the appliance address used by the trust probe.
	Hostname string `json:"hostname"`

	// HealthStatus is the last reported appliance health.
	HealthStatus TargetHealth `json:"health_status"`

	// PartnerTargetID references the paired DR-site appliance, if any.
	PartnerTargetID string `json:"partner_target_id,omitempty"`

	// SSHTrustEstablished is true once key trust with the appliance has
	// been verified.
	SSHTrustEstablished bool `json:"ssh_trust_established"`

	// CreatedAt is when the target was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the target was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplicationStatus is the per-VM replication state.
type ReplicationStatus string

const (
	// ReplicationActive indicates the VM is replicating normally.
	ReplicationActive ReplicationStatus = "active"

	// ReplicationSyncing indicates an initial or catch-up sync is running.
	ReplicationSyncing ReplicationStatus = "syncing"

	// ReplicationStalled indicates replication has stopped making progress.
	ReplicationStalled ReplicationStatus = "stalled"

	// ReplicationErrored indicates the last sync for this VM failed.
	ReplicationErrored ReplicationStatus = "error"
)

// ProtectedVM is a member of a protection group. Read-only to this core
// except indirectly through failover outcome.
type ProtectedVM struct {
	// ID is the unique identifier for this VM record.
	ID string `json:"id"`

	// GroupID references the owning protection group.
	GroupID string `json:"group_id"`

	// Name is the VM display name.
	Name string `json:"name"`

	// StorageBytes is the provisioned storage footprint of the VM.
	StorageBytes uint64 `json:"storage_bytes"`

	// DRShellVMCreated is true once a shell VM exists at the DR site.
	DRShellVMCreated bool `json:"dr_shell_vm_created"`

	// ReplicationStatus is the current per-VM replication state.
	ReplicationStatus ReplicationStatus `json:"replication_status"`

	// FailoverReady is true when the VM can be powered on at the DR site.
	FailoverReady bool `json:"failover_ready"`
}

// FailoverType distinguishes a rehearsal from a production cutover.
type FailoverType string

const (
	// FailoverTest is a non-destructive, time-bounded rehearsal.
	FailoverTest FailoverType = "test"

	// FailoverLive is a production cutover to the DR site.
	FailoverLive FailoverType = "live"
)

// FailoverEventStatus is the lifecycle status of a failover event record.
type FailoverEventStatus string

const (
	// EventPending indicates the failover job has been submitted but not
	// yet observed running.
	EventPending FailoverEventStatus = "pending"

	// EventInProgress indicates the executor is running the failover.
	EventInProgress FailoverEventStatus = "in_progress"

	// EventAwaitingCommit indicates a live failover completed and awaits
	// the operator's commit or rollback decision.
	EventAwaitingCommit FailoverEventStatus = "awaiting_commit"

	// EventCompleted is terminal: the failover was committed.
	EventCompleted FailoverEventStatus = "completed"

	// EventRolledBack is terminal: the failover was rolled back.
	EventRolledBack FailoverEventStatus = "rolled_back"

	// EventFailed is terminal: the executor reported failure.
	EventFailed FailoverEventStatus = "failed"
)

// IsTerminal reports whether the event status is final.
func (s FailoverEventStatus) IsTerminal() bool {
	switch s {
	case EventCompleted, EventRolledBack, EventFailed:
		return true
	}
	return false
}

// FailoverEvent is the persisted record of an executed failover. Created when
// the failover job is submitted; a live failover transitions to
// awaiting_commit after the executor completes, pending the operator's
// decision.
type FailoverEvent struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// GroupID references the protection group being failed over.
	GroupID string `json:"group_id"`

	// FailoverType is test or live.
	FailoverType FailoverType `json:"failover_type"`

	// Status is the current lifecycle status.
	Status FailoverEventStatus `json:"status"`

	// JobID is the remote job executing this failover.
	JobID string `json:"job_id"`

	// StartedAt is when the failover job was submitted.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the event reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// TestDurationMinutes bounds a test failover; DR VMs auto-power-off
	// when it elapses. Zero for live failovers.
	TestDurationMinutes int `json:"test_duration_minutes,omitempty"`

	// CleanupScheduledAt is the auto-cleanup deadline for a test failover.
	CleanupScheduledAt *time.Time `json:"cleanup_scheduled_at,omitempty"`

	// ErrorMessage holds the executor's failure message, if any.
	ErrorMessage string `json:"error_message,omitempty"`
}

// FailoverConfig is the full configuration submitted with a failover job.
type FailoverConfig struct {
	// ProtectionGroupID is the group to fail over.
	ProtectionGroupID string `json:"protection_group_id" validate:"required"`

	// FailoverType is test or live.
	FailoverType FailoverType `json:"failover_type" validate:"required,oneof=test live"`

	// ShutdownSourceVMs powers off source VMs before cutover (live only).
	ShutdownSourceVMs bool `json:"shutdown_source_vms"`

	// FinalSync runs one last replication before failover. Defaults on for
	// both types.
	FinalSync bool `json:"final_sync"`

	// ReverseProtection re-protects the group in the opposite direction
	// after a live failover.
	ReverseProtection bool `json:"reverse_protection"`

	// Force is true only when the operator explicitly accepted the blocker
	// override during preflight.
	Force bool `json:"force"`

	// TestDurationMinutes bounds a test failover, clamped to
	// [MinTestDurationMinutes, MaxTestDurationMinutes].
	TestDurationMinutes int `json:"test_duration_minutes,omitempty" validate:"omitempty,min=15,max=480"`
}

// Test duration bounds in minutes.
const (
	MinTestDurationMinutes = 15
	MaxTestDurationMinutes = 480
)

// ClampTestDuration clamps a requested test duration to the permitted range.
func ClampTestDuration(minutes int) int {
	if minutes < MinTestDurationMinutes {
		return MinTestDurationMinutes
	}
	if minutes > MaxTestDurationMinutes {
		return MaxTestDurationMinutes
	}
	return minutes
}

// SyncJobStatus is the outcome of a background replication job.
type SyncJobStatus string

const (
	// SyncSucceeded indicates the sync completed.
	SyncSucceeded SyncJobStatus = "succeeded"

	// SyncFailed indicates the sync failed.
	SyncFailed SyncJobStatus = "failed"

	// SyncRunning indicates the sync is still in progress.
	SyncRunning SyncJobStatus = "running"
)

// SyncJob is a historical record of a background replication job, consumed
// by the SLA diagnostics engine.
type SyncJob struct {
	// ID is the unique identifier for this sync job.
	ID string `json:"id"`

	// GroupID references the protection group that was synced.
	GroupID string `json:"group_id"`

	// Status is the job outcome.
	Status SyncJobStatus `json:"status"`

	// StartedAt is when the sync started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the sync finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// BytesTransferred is the volume moved by this sync.
	BytesTransferred uint64 `json:"bytes_transferred"`

	// ErrorMessage holds the failure message for failed syncs.
	ErrorMessage string `json:"error_message,omitempty"`
}

// CheckResult is a single named preflight check as reported by the executor.
type CheckResult struct {
	// Passed is false when the check found a problem.
	Passed bool `json:"passed"`

	// IsWarning downgrades a failed check from blocker to warning.
	IsWarning bool `json:"is_warning"`

	// Message is the executor's human explanation for the check.
	Message string `json:"message"`
}

// NamedCheck pairs a check name with its result.
type NamedCheck struct {
	// Name is the executor-assigned check name.
	Name string `json:"name"`

	// CheckResult is the check outcome.
	CheckResult
}

// PreflightResult is the classified outcome of a preflight job. It is
// transient and never persisted by this core.
type PreflightResult struct {
	// Checks maps check names to their results.
	Checks map[string]CheckResult `json:"checks"`

	// Blockers are failed, non-warning checks, sorted by name.
	Blockers []NamedCheck `json:"blockers"`

	// Warnings are failed checks flagged as warnings, sorted by name.
	Warnings []NamedCheck `json:"warnings"`

	// Ready is true iff there are no blockers, independent of warnings.
	Ready bool `json:"ready"`

	// CanForce is the executor-supplied flag permitting an operator to
	// proceed despite blockers after explicit acknowledgment. Absent from
	// the payload means false.
	CanForce bool `json:"can_force"`
}

// PreflightProgress is incremental progress surfaced while a preflight job
// runs. Absence of progress fields in a poll is not an error.
type PreflightProgress struct {
	// CurrentStep is the executor's description of the running check.
	CurrentStep string `json:"current_step,omitempty"`

	// ChecksCompleted is how many checks have finished.
	ChecksCompleted int `json:"checks_completed,omitempty"`

	// TotalChecks is the total number of checks, when known.
	TotalChecks int `json:"total_checks,omitempty"`
}

// PreflightUpdate is one element of the preflight evaluation stream: either
// incremental progress or the terminal result/error.
type PreflightUpdate struct {
	// Progress is set for incremental updates.
	Progress *PreflightProgress `json:"progress,omitempty"`

	// Result is set exactly once, on successful completion.
	Result *PreflightResult `json:"result,omitempty"`

	// Err is set exactly once, on terminal failure.
	Err error `json:"-"`
}

// ExecutionProgress is incremental progress surfaced while a failover job runs.
type ExecutionProgress struct {
	// CurrentStep is the executor's description of the running step.
	CurrentStep string `json:"current_step,omitempty"`

	// Percent is the executor-reported completion percentage.
	Percent float64 `json:"progress,omitempty"`
}

// FailedVM describes a per-VM failure reported by the executor.
type FailedVM struct {
	// Name is the VM name.
	Name string `json:"name"`

	// Reason is the executor's failure reason for this VM.
	Reason string `json:"reason,omitempty"`
}

// FailoverOutcome is the terminal result of a failover execution.
type FailoverOutcome struct {
	// Success reflects the completion rule: job completed and the executor
	// did not explicitly report success=false.
	Success bool `json:"success"`

	// AwaitingCommit is true when a live failover completed and the
	// operator must commit or roll back.
	AwaitingCommit bool `json:"awaiting_commit"`

	// FailedVMs lists per-VM failures, if the executor reported any.
	FailedVMs []FailedVM `json:"failed_vms,omitempty"`

	// Duration is the executor-reported job duration, if any.
	Duration time.Duration `json:"duration,omitempty"`

	// Message is the executor's summary message, if any.
	Message string `json:"message,omitempty"`
}
