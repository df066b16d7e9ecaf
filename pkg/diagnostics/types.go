// Package diagnostics implements the SLA diagnostics engine: a pure,
// synchronous rule evaluation over a protection group's current state that
// explains why the group is or is not meeting its RPO target. The engine
// never gates anything; it only diagnoses.
package diagnostics

import (
	"time"

	"github.com/replicore/replicore/pkg/orchestrator"
)

// Severity classifies a diagnosis.
type Severity string

const (
	// SeverityCritical indicates the group cannot currently meet its SLA
	// or cannot fail over.
	SeverityCritical Severity = "critical"

	// SeverityWarning indicates degraded posture that needs attention.
	SeverityWarning Severity = "warning"

	// SeverityInfo indicates an advisory finding.
	SeverityInfo Severity = "info"
)

// Diagnosis codes. Order in the catalog defines output order.
const (
	CodeGroupPaused        = "group_paused"
	CodeNeverSynced        = "never_synced"
	CodeRPOExceeded        = "rpo_exceeded"
	CodeRecentSyncFailures = "recent_sync_failures"
	CodeTargetUnhealthy    = "target_unhealthy"
	CodeTargetsNotPaired   = "targets_not_paired"
	CodeSSHTrustMissing    = "ssh_trust_missing"
	CodeVMMissingDRShell   = "vm_missing_dr_shell"
	CodeTestOverdue        = "test_overdue"
)

// Result is a single diagnosed root cause. Purely derived, never stored.
type Result struct {
	// Code identifies the rule that raised this diagnosis.
	Code string `json:"errorCode"`

	// Severity is the classified severity. It is a property of the rule
	// definition except where the rule itself computes the distinction.
	Severity Severity `json:"severity"`

	// Context carries the raw values the explanation references, e.g.
	// {"last_replication_at": ..., "rpo_minutes": ...}.
	Context map[string]interface{} `json:"context,omitempty"`
}

// Definition is the static catalog entry joined against a Result for display.
type Definition struct {
	// Code links the definition to its rule.
	Code string `json:"code"`

	// Title is the short display title.
	Title string `json:"title"`

	// Description explains what the rule detected.
	Description string `json:"description"`

	// Impact explains what the finding means for recoverability.
	Impact string `json:"impact"`

	// Remediation lists ordered remediation steps.
	Remediation []string `json:"remediation"`

	// QuickAction is an optional action tag the console can render as a
	// one-click remediation (e.g. "run_sync", "establish_trust").
	QuickAction string `json:"quick_action,omitempty"`
}

// Input is the full state the engine evaluates. All fields are read-only
// snapshots; the engine performs no I/O.
type Input struct {
	// Group is the protection group under diagnosis.
	Group *orchestrator.ProtectionGroup

	// Target is the group's source replication target, if resolved.
	Target *orchestrator.ReplicationTarget

	// PartnerTarget is the DR-site partner of Target, if resolved.
	PartnerTarget *orchestrator.ReplicationTarget

	// VMs are the group's member VMs.
	VMs []orchestrator.ProtectedVM

	// RecentSyncJobs is recent replication job history, newest first.
	RecentSyncJobs []orchestrator.SyncJob

	// Now is the evaluation timestamp.
	Now time.Time
}
