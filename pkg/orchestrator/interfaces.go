package orchestrator

import (
	"context"
	"time"

	"github.com/replicore/replicore/pkg/telemetry"
)

// Clock abstracts time for the lifecycle timer and event bookkeeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// realClock is the production clock.
type realClock struct{}

// Now implements Clock.
func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return realClock{} }

// GroupReader reads protection group records. Groups are mutated only by the
// external executor; this core never writes them.
type GroupReader interface {
	// GetGroup returns the group by ID.
	GetGroup(ctx context.Context, id string) (*ProtectionGroup, error)
}

// EventStore persists failover event records, the one piece of state this
// core owns.
type EventStore interface {
	// CreateFailoverEvent persists a new event record.
	CreateFailoverEvent(ctx context.Context, event *FailoverEvent) error

	// UpdateFailoverEventStatus transitions an event's status. errMsg is
	// stored for failed events and ignored otherwise.
	UpdateFailoverEventStatus(ctx context.Context, id string, status FailoverEventStatus, errMsg string) error

	// GetFailoverEvent returns the event by ID.
	GetFailoverEvent(ctx context.Context, id string) (*FailoverEvent, error)

	// ScheduleCleanup records the auto-cleanup deadline for a test
	// failover event.
	ScheduleCleanup(ctx context.Context, id string, at time.Time) error

	// ActiveFailoverEvent returns the group's non-terminal event, if any.
	// At most one exists at a time; it blocks new submissions.
	ActiveFailoverEvent(ctx context.Context, groupID string) (*FailoverEvent, error)
}

// GuardrailEvaluator is the optional pre-submission policy gate. A denial
// blocks submission locally; nothing is sent to the executor.
type GuardrailEvaluator interface {
	// EvaluateFailover evaluates policy against a failover request.
	EvaluateFailover(ctx context.Context, in *GuardrailInput) (*GuardrailDecision, error)
}

// GuardrailInput is the document guardrail policies evaluate.
type GuardrailInput struct {
	// Group is the protection group being failed over.
	Group *ProtectionGroup `json:"group"`

	// Config is the full failover configuration about to be submitted.
	Config FailoverConfig `json:"config"`

	// ActiveEvent is the group's non-terminal failover event, if any.
	ActiveEvent *FailoverEvent `json:"active_event,omitempty"`
}

// GuardrailLevel is the enforcement level of a violation.
type GuardrailLevel string

const (
	// GuardrailDeny blocks the submission.
	GuardrailDeny GuardrailLevel = "deny"

	// GuardrailWarn surfaces the violation without blocking.
	GuardrailWarn GuardrailLevel = "warn"
)

// GuardrailViolation is one policy finding.
type GuardrailViolation struct {
	// Policy names the policy that fired.
	Policy string `json:"policy"`

	// Level is deny or warn.
	Level GuardrailLevel `json:"level"`

	// Message is the policy's human explanation.
	Message string `json:"message"`
}

// GuardrailDecision is the aggregate policy outcome.
type GuardrailDecision struct {
	// Allowed is false when any deny-level violation fired.
	Allowed bool `json:"allowed"`

	// Violations lists every finding, deny and warn alike.
	Violations []GuardrailViolation `json:"violations,omitempty"`
}

// DenyReasons returns the messages of deny-level violations.
func (d *GuardrailDecision) DenyReasons() []string {
	var reasons []string
	for _, v := range d.Violations {
		if v.Level == GuardrailDeny {
			reasons = append(reasons, v.Policy+": "+v.Message)
		}
	}
	return reasons
}

// Instrumentation bundles the optional metrics, tracing, and event sinks.
// A nil Instrumentation (or nil fields) disables the corresponding signal;
// the orchestration logic never depends on it.
type Instrumentation struct {
	// Metrics is the Prometheus collector.
	Metrics *telemetry.Metrics

	// Tracer emits spans around preflight, failover, and decision runs.
	Tracer *telemetry.Tracer

	// Events is the console event publisher.
	Events *telemetry.EventPublisher
}

func (i *Instrumentation) metrics() *telemetry.Metrics {
	if i == nil {
		return nil
	}
	return i.Metrics
}

func (i *Instrumentation) events() *telemetry.EventPublisher {
	if i == nil {
		return nil
	}
	return i.Events
}

// noSpan is the end callback when tracing is disabled.
func noSpan(error) {}

// startPreflightSpan opens a preflight span. The returned callback records
// the outcome and ends the span.
func (i *Instrumentation) startPreflightSpan(ctx context.Context, groupID string) (context.Context, func(error)) {
	if i == nil || i.Tracer == nil {
		return ctx, noSpan
	}
	spanCtx, span := i.Tracer.StartPreflightSpan(ctx, groupID)
	return spanCtx, func(err error) {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}
}

// startFailoverSpan opens a failover execution span.
func (i *Instrumentation) startFailoverSpan(ctx context.Context, groupID, failoverType string) (context.Context, func(error)) {
	if i == nil || i.Tracer == nil {
		return ctx, noSpan
	}
	spanCtx, span := i.Tracer.StartFailoverSpan(ctx, groupID, failoverType)
	return spanCtx, func(err error) {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}
}

// startJobSpan opens a span for a commit/rollback decision job.
func (i *Instrumentation) startJobSpan(ctx context.Context, jobType, operation string) (context.Context, func(error)) {
	if i == nil || i.Tracer == nil {
		return ctx, noSpan
	}
	spanCtx, span := i.Tracer.StartJobSpan(ctx, jobType, operation)
	return spanCtx, func(err error) {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}
}

func (i *Instrumentation) recordPreflightStarted(groupID string) {
	if m := i.metrics(); m != nil {
		m.RecordPreflightStarted(groupID)
	}
}

func (i *Instrumentation) recordPreflightCompleted(outcome string, d time.Duration) {
	if m := i.metrics(); m != nil {
		m.RecordPreflightCompleted(outcome, d)
	}
}

func (i *Instrumentation) recordFailoverStarted(failoverType string) {
	if m := i.metrics(); m != nil {
		m.RecordFailoverStarted(failoverType)
	}
}

func (i *Instrumentation) recordFailoverCompleted(failoverType, status string, d time.Duration) {
	if m := i.metrics(); m != nil {
		m.RecordFailoverCompleted(failoverType, status, d)
	}
}

func (i *Instrumentation) recordJobPoll(jobType string) {
	if m := i.metrics(); m != nil {
		m.RecordJobPoll(jobType)
	}
}

func (i *Instrumentation) recordPollError(jobType string) {
	if m := i.metrics(); m != nil {
		m.RecordPollError(jobType)
	}
}

func (i *Instrumentation) recordJobSubmission(jobType, status string) {
	if m := i.metrics(); m != nil {
		m.RecordJobSubmission(jobType, status)
	}
}

func (i *Instrumentation) recordGuardrailDenial(policy string) {
	if m := i.metrics(); m != nil {
		m.RecordGuardrailDenial(policy)
	}
}

func (i *Instrumentation) recordError(err error) {
	m := i.metrics()
	if m == nil || err == nil {
		return
	}
	m.RecordError(string(ClassOf(err)), CodeOf(err))
}
