// Package jobqueue defines the wire contract with the external executor's
// asynchronous job queue: typed job submission and polling. The executor is
// treated as untrusted, slow, and eventually consistent; a poll may report a
// stale status for a few seconds after an action.
package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the remote job lifecycle status.
type JobStatus string

const (
	// StatusPending indicates the job is queued but not yet running.
	StatusPending JobStatus = "pending"

	// StatusRunning indicates the executor is working on the job.
	StatusRunning JobStatus = "running"

	// StatusCompleted indicates the job finished. Completion alone does not
	// imply success; per-type payloads carry the success signal.
	StatusCompleted JobStatus = "completed"

	// StatusFailed indicates the executor reported failure.
	StatusFailed JobStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType identifies the executor contract a job follows.
type JobType string

const (
	// TypePreflightCheck runs readiness checks for a protection group.
	TypePreflightCheck JobType = "failover_preflight_check"

	// TypeFailoverExecute performs a test or live failover.
	TypeFailoverExecute JobType = "failover_execute"

	// TypeFailoverCommit finalizes a live failover, discarding the
	// rollback path.
	TypeFailoverCommit JobType = "failover_commit"

	// TypeFailoverRollback powers off DR VMs and reverts the group. Also
	// used for early termination of a test failover.
	TypeFailoverRollback JobType = "failover_rollback"
)

// Request is a typed job submission.
type Request struct {
	// JobType selects the executor contract.
	JobType JobType `json:"job_type"`

	// TargetScope identifies the object the job operates on (a protection
	// group ID for preflight/execute, a failover event ID for
	// commit/rollback).
	TargetScope string `json:"target_scope"`

	// IdempotencyKey lets the executor de-duplicate redelivered requests.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Details is the job_type-specific submission payload.
	Details json.RawMessage `json:"details,omitempty"`
}

// Job is the opaque remote job record returned by a poll.
type Job struct {
	// ID is the queue-assigned job identifier.
	ID string `json:"id"`

	// Status is the remote lifecycle status.
	Status JobStatus `json:"status"`

	// Details is the job_type-specific progress/result payload. Its schema
	// is a contract with the external executor, decoded at the poll
	// boundary by the typed accessors below.
	Details json.RawMessage `json:"details,omitempty"`
}

// PreflightDetails is the payload of a failover_preflight_check job.
//
// The executor reports the check map under "result" on newer builds and
// "preflight_results" on older ones; Checks() normalizes the two. This is a
// known executor inconsistency, kept explicit here rather than guessed at
// by callers.
type PreflightDetails struct {
	// Result is the check map under the current key.
	Result map[string]RawCheck `json:"result,omitempty"`

	// PreflightResults is the check map under the legacy key.
	PreflightResults map[string]RawCheck `json:"preflight_results,omitempty"`

	// CanForce permits an operator to proceed despite blockers after
	// explicit acknowledgment. Absent means not permitted.
	CanForce bool `json:"can_force,omitempty"`

	// CurrentStep is the running check description, when reported.
	CurrentStep string `json:"current_step,omitempty"`

	// ChecksCompleted is progress, when reported.
	ChecksCompleted int `json:"checks_completed,omitempty"`

	// TotalChecks is progress, when reported.
	TotalChecks int `json:"total_checks,omitempty"`

	// Error is the executor's failure message on a failed job.
	Error string `json:"error,omitempty"`
}

// RawCheck is one named preflight check as serialized by the executor.
type RawCheck struct {
	Passed    bool   `json:"passed"`
	IsWarning bool   `json:"is_warning"`
	Message   string `json:"message"`
}

// Checks returns the normalized check map, preferring the current key over
// the legacy one. Returns nil when neither is present (job still running).
func (d *PreflightDetails) Checks() map[string]RawCheck {
	if d.Result != nil {
		return d.Result
	}
	return d.PreflightResults
}

// FailoverResult is the executor's completion report for a failover job.
type FailoverResult struct {
	// Success is the executor's outcome flag. Only an explicit false means
	// failure; an absent field means success. Callers must use Succeeded()
	// rather than reading this directly.
	Success *bool `json:"success,omitempty"`

	// FailedVMs lists per-VM failures, if any.
	FailedVMs []FailedVM `json:"failed_vms,omitempty"`

	// Message is the executor's summary message.
	Message string `json:"message,omitempty"`
}

// Succeeded applies the asymmetric completion rule: an explicit false is the
// only failure signal.
func (r *FailoverResult) Succeeded() bool {
	return r == nil || r.Success == nil || *r.Success
}

// FailedVM is a per-VM failure entry.
type FailedVM struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// FailoverDetails is the payload of a failover_execute job.
type FailoverDetails struct {
	// CurrentStep is the running step description, when reported.
	CurrentStep string `json:"current_step,omitempty"`

	// Progress is the completion percentage, when reported.
	Progress float64 `json:"progress,omitempty"`

	// EventStatus is the failover event status as tracked by the executor
	// (e.g. awaiting_commit after a live failover completes).
	EventStatus string `json:"event_status,omitempty"`

	// Result is the completion report, present once the job completes.
	Result *FailoverResult `json:"result,omitempty"`

	// DurationSeconds is the executor-reported job duration.
	DurationSeconds float64 `json:"duration,omitempty"`

	// Error is the executor's failure message on a failed job.
	Error string `json:"error,omitempty"`
}

// Duration returns the executor-reported duration.
func (d *FailoverDetails) Duration() time.Duration {
	return time.Duration(d.DurationSeconds * float64(time.Second))
}

// CommitDetails is the payload of failover_commit and failover_rollback jobs.
type CommitDetails struct {
	// EventID is the failover event the decision applies to.
	EventID string `json:"failover_event_id"`

	// Message is the executor's summary message, if any.
	Message string `json:"message,omitempty"`
}

// DecodePreflightDetails decodes a preflight job payload. An empty payload
// decodes to the zero value: a running job with no progress report yet is
// not an error.
func DecodePreflightDetails(job *Job) (*PreflightDetails, error) {
	var d PreflightDetails
	if len(job.Details) == 0 {
		return &d, nil
	}
	if err := json.Unmarshal(job.Details, &d); err != nil {
		return nil, fmt.Errorf("malformed %s details for job %s: %w", TypePreflightCheck, job.ID, err)
	}
	return &d, nil
}

// DecodeFailoverDetails decodes a failover execution job payload.
func DecodeFailoverDetails(job *Job) (*FailoverDetails, error) {
	var d FailoverDetails
	if len(job.Details) == 0 {
		return &d, nil
	}
	if err := json.Unmarshal(job.Details, &d); err != nil {
		return nil, fmt.Errorf("malformed %s details for job %s: %w", TypeFailoverExecute, job.ID, err)
	}
	return &d, nil
}

// DecodeCommitDetails decodes a commit/rollback job payload.
func DecodeCommitDetails(job *Job) (*CommitDetails, error) {
	var d CommitDetails
	if len(job.Details) == 0 {
		return &d, nil
	}
	if err := json.Unmarshal(job.Details, &d); err != nil {
		return nil, fmt.Errorf("malformed commit details for job %s: %w", job.ID, err)
	}
	return &d, nil
}

// EncodeDetails marshals a submission payload for a Request.
func EncodeDetails(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode job details: %w", err)
	}
	return data, nil
}
