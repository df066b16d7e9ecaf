// Package orchestrator implements the failover orchestration core: the
// preflight evaluator, the guarded multi-step failover state machine, and the
// test-failover lifecycle timer. All long-running work is delegated to an
// external executor through the job queue; this package submits jobs and
// polls them, it never performs the operations itself.
package orchestrator

import (
	"errors"
	"fmt"
)

// ErrorClass classifies orchestration errors. Every class is terminal:
// nothing in this core is silently retried, because a failover submission
// must never be duplicated and an unknown job state must never be treated
// as success.
type ErrorClass string

const (
	// ErrClassSubmission indicates the remote queue rejected a job request.
	ErrClassSubmission ErrorClass = "submission"

	// ErrClassPoll indicates a transport or read failure while polling.
	// Fail-closed: the job's true state is unknown.
	ErrClassPoll ErrorClass = "poll"

	// ErrClassJobFailed indicates the executor reported status=failed.
	ErrClassJobFailed ErrorClass = "job_failed"

	// ErrClassValidation indicates a local precondition failed; nothing
	// was submitted remotely.
	ErrClassValidation ErrorClass = "validation"

	// ErrClassPreflightBlocked indicates one or more non-warning preflight
	// checks failed and no permitted force-override was acknowledged.
	ErrClassPreflightBlocked ErrorClass = "preflight_blocked"

	// ErrClassTimeout indicates a bounded poll exceeded its deadline.
	ErrClassTimeout ErrorClass = "timeout"
)

// Error codes for programmatic handling.
const (
	ErrCodeConfirmationMismatch = "CONFIRMATION_MISMATCH"
	ErrCodeDuplicateSubmission  = "DUPLICATE_SUBMISSION"
	ErrCodePreflightTimeout     = "PREFLIGHT_TIMEOUT"
	ErrCodeExecutionTimeout     = "EXECUTION_TIMEOUT"
	ErrCodeAwaitingCommit       = "AWAITING_COMMIT"
	ErrCodeTestActive           = "TEST_ACTIVE"
	ErrCodeForceNotPermitted    = "FORCE_NOT_PERMITTED"
	ErrCodeGuardrailDenied      = "GUARDRAIL_DENIED"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeGroupNotFound        = "GROUP_NOT_FOUND"
)

// OrchestrationError is a classified error with context.
type OrchestrationError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// GroupID is the protection group involved, if applicable.
	GroupID string `json:"group_id,omitempty"`

	// JobID is the remote job involved, if applicable.
	JobID string `json:"job_id,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information, e.g. the
	// blocker list for a preflight_blocked error or the failed VM list for
	// a job_failed error.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.GroupID != "" && e.JobID != "" {
		return fmt.Sprintf("[%s] %s (group=%s, job=%s)%s",
			e.Class, e.Message, e.GroupID, e.JobID, e.causeSuffix())
	}
	if e.GroupID != "" {
		return fmt.Sprintf("[%s] %s (group=%s)%s",
			e.Class, e.Message, e.GroupID, e.causeSuffix())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.causeSuffix())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

func (e *OrchestrationError) causeSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *OrchestrationError) Is(target error) bool {
	t, ok := target.(*OrchestrationError)
	if !ok {
		return false
	}
	return e.Class == t.Class && (t.Code == "" || e.Code == t.Code)
}

// WithCode sets the error code and returns the error.
func (e *OrchestrationError) WithCode(code string) *OrchestrationError {
	e.Code = code
	return e
}

// WithGroup sets the group ID and returns the error.
func (e *OrchestrationError) WithGroup(groupID string) *OrchestrationError {
	e.GroupID = groupID
	return e
}

// WithJob sets the job ID and returns the error.
func (e *OrchestrationError) WithJob(jobID string) *OrchestrationError {
	e.JobID = jobID
	return e
}

// WithDetail attaches a context detail and returns the error.
func (e *OrchestrationError) WithDetail(key string, value interface{}) *OrchestrationError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewSubmissionError creates a new submission error.
func NewSubmissionError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassSubmission,
		Message: message,
		Err:     err,
	}
}

// NewPollError creates a new poll error.
func NewPollError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassPoll,
		Message: message,
		Err:     err,
	}
}

// NewJobFailedError creates a new job-failed error.
func NewJobFailedError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassJobFailed,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassValidation,
		Message: message,
		Err:     err,
	}
}

// NewPreflightBlockedError creates a new preflight-blocked error.
func NewPreflightBlockedError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassPreflightBlocked,
		Message: message,
		Err:     err,
	}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, err error) *OrchestrationError {
	return &OrchestrationError{
		Class:   ErrClassTimeout,
		Message: message,
		Err:     err,
	}
}

// ClassOf returns the error class of err, or an empty class for
// non-orchestration errors.
func ClassOf(err error) ErrorClass {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Class
	}
	return ""
}

// CodeOf returns the error code of err, or an empty string.
func CodeOf(err error) string {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}
