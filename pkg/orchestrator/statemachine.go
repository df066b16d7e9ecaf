package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/jobqueue"
	"github.com/replicore/replicore/pkg/telemetry"
)

// State is a step of the guarded failover flow.
type State string

const (
	// StatePreflight runs readiness checks before options are offered.
	StatePreflight State = "preflight"

	// StateOptions is where the operator selects the failover type and
	// type-specific settings.
	StateOptions State = "options"

	// StateConfirm is the irreversible-action confirmation gate.
	StateConfirm State = "confirm"

	// StateExecuting tracks the submitted failover job to completion.
	StateExecuting State = "executing"

	// StateComplete is the terminal step. For a live failover it may carry
	// a pending commit-or-rollback decision.
	StateComplete State = "complete"
)

// IsInterruptible reports whether the host may tear the flow down in the
// given state. Preflight and Executing must not be dismissed: a remote job
// is in flight and abandoning the view would orphan it from the operator's
// perspective.
func IsInterruptible(s State) bool {
	return s != StatePreflight && s != StateExecuting
}

// ConfirmationValid reports whether the typed confirmation matches the group
// name. The comparison is exact and case-sensitive; there is no trimming or
// other leniency.
func ConfirmationValid(groupName, typed string) bool {
	return typed == groupName
}

// FailoverOptions are the operator-selected settings from the Options step.
type FailoverOptions struct {
	// FailoverType is test or live.
	FailoverType FailoverType

	// TestDurationMinutes bounds a test failover. Ignored for live.
	TestDurationMinutes int

	// ShutdownSourceVMs powers off source VMs before cutover. Live only.
	ShutdownSourceVMs bool

	// FinalSync runs one last replication before failover.
	FinalSync bool

	// ReverseProtection re-protects in the opposite direction after a live
	// failover.
	ReverseProtection bool
}

// DefaultTestDurationMinutes is the test window applied when neither the
// caller nor configuration supplies one.
const DefaultTestDurationMinutes = 60

// DefaultFailoverOptions returns the option defaults for a failover type.
// FinalSync is on for both types.
func DefaultFailoverOptions(t FailoverType) FailoverOptions {
	opts := FailoverOptions{
		FailoverType: t,
		FinalSync:    true,
	}
	if t == FailoverTest {
		opts.TestDurationMinutes = DefaultTestDurationMinutes
	}
	return opts
}

// InflightRegistry tracks groups with a failover submission in flight. It
// closes the window between two rapid Execute calls on the same group, before
// the first call's event record has been persisted.
type InflightRegistry struct {
	mu     sync.Mutex
	groups map[string]struct{}
}

// NewInflightRegistry creates an empty registry.
func NewInflightRegistry() *InflightRegistry {
	return &InflightRegistry{groups: make(map[string]struct{})}
}

// TryAcquire claims the group for a submission. It returns false when the
// group is already claimed.
func (r *InflightRegistry) TryAcquire(groupID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.groups[groupID]; held {
		return false
	}
	r.groups[groupID] = struct{}{}
	return true
}

// Release frees the group.
func (r *InflightRegistry) Release(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, groupID)
}

// Default execution polling parameters.
const (
	DefaultExecutePollInterval = 2 * time.Second
	DefaultExecuteTimeout      = 2 * time.Hour
)

// StateMachineOptions configures a FailoverStateMachine.
type StateMachineOptions struct {
	// ExecutePollInterval is the fixed delay between failover job polls.
	ExecutePollInterval time.Duration

	// ExecuteTimeout bounds the execution polling loop.
	ExecuteTimeout time.Duration
}

// Dependencies are the collaborators of a FailoverStateMachine.
type Dependencies struct {
	// Queue is the job queue client. Required.
	Queue jobqueue.Client

	// Groups reads protection group records. Required.
	Groups GroupReader

	// Events persists failover event records. Required.
	Events EventStore

	// Decisions carries commit/rollback submissions. Required.
	Decisions *DecisionClient

	// Guardrails is the optional pre-submission policy gate.
	Guardrails GuardrailEvaluator

	// Preflight is the optional evaluator for the Preflight step. A
	// session created with skipPreflight never uses it.
	Preflight *PreflightEvaluator

	// Clock defaults to the system clock.
	Clock Clock

	// Instrumentation is optional.
	Instrumentation *Instrumentation
}

// FailoverStateMachine sequences a guarded failover: preflight, option
// selection, confirmation, execution, and for live failovers the
// post-completion commit-or-rollback decision. It is the only component that
// mutates remote state, and it does so exclusively by submitting jobs.
type FailoverStateMachine struct {
	deps     Dependencies
	inflight *InflightRegistry
	validate *validator.Validate
	logger   zerolog.Logger
	opts     StateMachineOptions
}

// NewFailoverStateMachine creates a state machine.
func NewFailoverStateMachine(deps Dependencies, logger zerolog.Logger, opts StateMachineOptions) *FailoverStateMachine {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if opts.ExecutePollInterval <= 0 {
		opts.ExecutePollInterval = DefaultExecutePollInterval
	}
	if opts.ExecuteTimeout <= 0 {
		opts.ExecuteTimeout = DefaultExecuteTimeout
	}
	return &FailoverStateMachine{
		deps:     deps,
		inflight: NewInflightRegistry(),
		validate: validator.New(),
		logger:   logger.With().Str("component", "failover").Logger(),
		opts:     opts,
	}
}

// FailoverSession is one walk through the failover flow for a single group.
// Sessions are not safe for concurrent use; the flow is strictly sequential.
type FailoverSession struct {
	machine *FailoverStateMachine
	logger  zerolog.Logger

	group     *ProtectionGroup
	state     State
	preflight *PreflightResult
	config    FailoverConfig
	confirmed bool

	event   *FailoverEvent
	outcome *FailoverOutcome
}

// Begin starts a failover session for the group. With skipPreflight the
// session opens at the Options step, for callers that already ran the
// evaluator themselves.
func (m *FailoverStateMachine) Begin(ctx context.Context, groupID string, skipPreflight bool) (*FailoverSession, error) {
	group, err := m.deps.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, NewValidationError("protection group lookup failed", err).
			WithGroup(groupID).
			WithCode(ErrCodeGroupNotFound)
	}

	state := StatePreflight
	if skipPreflight {
		state = StateOptions
	}
	return &FailoverSession{
		machine: m,
		logger:  m.logger.With().Str("group_id", group.ID).Logger(),
		group:   group,
		state:   state,
		config: FailoverConfig{
			ProtectionGroupID: group.ID,
		},
	}, nil
}

// State returns the session's current step.
func (s *FailoverSession) State() State { return s.state }

// Group returns the protection group under failover.
func (s *FailoverSession) Group() *ProtectionGroup { return s.group }

// Event returns the persisted failover event, once execution has submitted.
func (s *FailoverSession) Event() *FailoverEvent { return s.event }

// Outcome returns the terminal execution outcome, once in Complete.
func (s *FailoverSession) Outcome() *FailoverOutcome { return s.outcome }

// PreflightResult returns the classified preflight outcome, if the session
// ran preflight.
func (s *FailoverSession) PreflightResult() *PreflightResult { return s.preflight }

func (s *FailoverSession) requireState(want State, op string) error {
	if s.state != want {
		return NewValidationError(fmt.Sprintf("%s is not valid in the %s step", op, s.state), nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeInvalidTransition)
	}
	return nil
}

// RunPreflight runs the Preflight step. When the group is ready the session
// advances to Options. When blockers were found the session stays in
// Preflight pending AcknowledgeBlockers, and the classified result is
// returned alongside a preflight_blocked error.
func (s *FailoverSession) RunPreflight(ctx context.Context) (*PreflightResult, error) {
	if err := s.requireState(StatePreflight, "preflight"); err != nil {
		return nil, err
	}
	if s.machine.deps.Preflight == nil {
		return nil, NewValidationError("no preflight evaluator configured", nil).WithGroup(s.group.ID)
	}

	result, err := s.machine.deps.Preflight.Run(ctx, s.group.ID)
	if err != nil {
		return nil, err
	}
	s.preflight = result

	if !result.Ready {
		return result, NewPreflightBlockedError("preflight found blocking conditions", nil).
			WithGroup(s.group.ID).
			WithDetail("blockers", result.Blockers).
			WithDetail("can_force", result.CanForce)
	}

	s.state = StateOptions
	return result, nil
}

// AcknowledgeBlockers lets the operator proceed past a blocked preflight.
// Progression requires both the executor's can_force permission and an
// explicit force=true acknowledgment; either one alone is insufficient. On
// success the submission will carry force=true and the session advances to
// Options.
func (s *FailoverSession) AcknowledgeBlockers(force bool) error {
	if err := s.requireState(StatePreflight, "blocker acknowledgment"); err != nil {
		return err
	}
	if s.preflight == nil {
		return NewValidationError("preflight has not run", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeInvalidTransition)
	}
	if s.preflight.Ready {
		s.state = StateOptions
		return nil
	}
	if !s.preflight.CanForce || !force {
		return NewPreflightBlockedError("blocking conditions cannot be overridden", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeForceNotPermitted).
			WithDetail("blockers", s.preflight.Blockers)
	}

	s.config.Force = true
	s.state = StateOptions
	return nil
}

// SetOptions applies the operator's Options selections and advances to
// Confirm. Test durations are clamped to the permitted range rather than
// rejected.
func (s *FailoverSession) SetOptions(opts FailoverOptions) error {
	if err := s.requireState(StateOptions, "option selection"); err != nil {
		return err
	}
	if opts.FailoverType != FailoverTest && opts.FailoverType != FailoverLive {
		return NewValidationError(fmt.Sprintf("unknown failover type %q", opts.FailoverType), nil).
			WithGroup(s.group.ID)
	}

	s.config.FailoverType = opts.FailoverType
	s.config.FinalSync = opts.FinalSync
	if opts.FailoverType == FailoverTest {
		s.config.TestDurationMinutes = ClampTestDuration(opts.TestDurationMinutes)
		s.config.ShutdownSourceVMs = false
		s.config.ReverseProtection = false
	} else {
		s.config.TestDurationMinutes = 0
		s.config.ShutdownSourceVMs = opts.ShutdownSourceVMs
		s.config.ReverseProtection = opts.ReverseProtection
	}

	s.state = StateConfirm
	return nil
}

// Confirm passes the confirmation gate and advances to Executing. A live
// failover requires the typed confirmation to equal the group name exactly;
// a test failover accepts any input.
func (s *FailoverSession) Confirm(typed string) error {
	if err := s.requireState(StateConfirm, "confirmation"); err != nil {
		return err
	}
	if s.config.FailoverType == FailoverLive && !ConfirmationValid(s.group.Name, typed) {
		return NewValidationError("typed confirmation does not match the group name", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeConfirmationMismatch)
	}

	s.confirmed = true
	s.state = StateExecuting
	return nil
}

// Execute submits the failover job and polls it to completion, invoking
// onProgress for each progress report. It advances to Complete and returns
// the outcome; for a live failover that the executor parked in
// awaiting_commit, the outcome's AwaitingCommit is true and the operator
// must Commit or Rollback. Submission and polling failures are terminal and
// never retried.
func (s *FailoverSession) Execute(ctx context.Context, onProgress func(ExecutionProgress)) (*FailoverOutcome, error) {
	if err := s.requireState(StateExecuting, "execution"); err != nil {
		return nil, err
	}
	m := s.machine

	outcome, err := func() (*FailoverOutcome, error) {
		if err := s.checkNoActiveEvent(ctx); err != nil {
			return nil, err
		}

		if !m.inflight.TryAcquire(s.group.ID) {
			return nil, NewValidationError("a failover submission for this group is already in flight", nil).
				WithGroup(s.group.ID).
				WithCode(ErrCodeDuplicateSubmission)
		}
		defer m.inflight.Release(s.group.ID)

		if err := m.validate.Struct(s.config); err != nil {
			return nil, NewValidationError("failover configuration invalid", err).WithGroup(s.group.ID)
		}

		if err := s.evaluateGuardrails(ctx); err != nil {
			return nil, err
		}

		return s.submitAndTrack(ctx, onProgress)
	}()
	if err != nil {
		m.deps.Instrumentation.recordError(err)
		return nil, err
	}

	s.outcome = outcome
	s.state = StateComplete
	return outcome, nil
}

// checkNoActiveEvent enforces the persisted-event invariants: an event in
// awaiting_commit blocks any new failover, an active test blocks a second
// test, and any other non-terminal event means a submission is already
// running.
func (s *FailoverSession) checkNoActiveEvent(ctx context.Context) error {
	active, err := s.machine.deps.Events.ActiveFailoverEvent(ctx, s.group.ID)
	if err != nil {
		return NewValidationError("active failover lookup failed", err).WithGroup(s.group.ID)
	}
	if active == nil {
		return nil
	}

	switch {
	case active.Status == EventAwaitingCommit:
		return NewValidationError("a live failover is awaiting commit or rollback", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeAwaitingCommit).
			WithDetail("event_id", active.ID)
	case active.FailoverType == FailoverTest:
		return NewValidationError("a test failover is already active for this group", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeTestActive).
			WithDetail("event_id", active.ID)
	default:
		return NewValidationError("a failover is already running for this group", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeDuplicateSubmission).
			WithDetail("event_id", active.ID)
	}
}

func (s *FailoverSession) evaluateGuardrails(ctx context.Context) error {
	m := s.machine
	if m.deps.Guardrails == nil {
		return nil
	}

	active, err := m.deps.Events.ActiveFailoverEvent(ctx, s.group.ID)
	if err != nil {
		return NewValidationError("active failover lookup failed", err).WithGroup(s.group.ID)
	}
	decision, err := m.deps.Guardrails.EvaluateFailover(ctx, &GuardrailInput{
		Group:       s.group,
		Config:      s.config,
		ActiveEvent: active,
	})
	if err != nil {
		// Policy evaluation failure blocks submission. An unknown policy
		// verdict is treated like a denial.
		return NewValidationError("guardrail evaluation failed", err).
			WithGroup(s.group.ID).
			WithCode(ErrCodeGuardrailDenied)
	}

	for _, v := range decision.Violations {
		if v.Level == GuardrailWarn {
			s.logger.Warn().Str("policy", v.Policy).Msg(v.Message)
		}
	}
	if decision.Allowed {
		return nil
	}

	for _, v := range decision.Violations {
		if v.Level != GuardrailDeny {
			continue
		}
		m.deps.Instrumentation.recordGuardrailDenial(v.Policy)
		if ev := m.deps.Instrumentation.events(); ev != nil {
			_ = ev.PublishGuardrailDenied(s.group.ID, v.Policy, v.Message)
		}
	}
	return NewValidationError("failover denied by guardrail policy", nil).
		WithGroup(s.group.ID).
		WithCode(ErrCodeGuardrailDenied).
		WithDetail("reasons", decision.DenyReasons())
}

func (s *FailoverSession) submitAndTrack(ctx context.Context, onProgress func(ExecutionProgress)) (outcome *FailoverOutcome, err error) {
	m := s.machine
	instr := m.deps.Instrumentation
	failoverType := string(s.config.FailoverType)

	ctx, endSpan := instr.startFailoverSpan(ctx, s.group.ID, failoverType)
	defer func() { endSpan(err) }()

	details, err := jobqueue.EncodeDetails(s.config)
	if err != nil {
		return nil, NewSubmissionError("encode failover request", err).WithGroup(s.group.ID)
	}

	jobID, err := m.deps.Queue.Submit(ctx, jobqueue.Request{
		JobType:        jobqueue.TypeFailoverExecute,
		TargetScope:    s.group.ID,
		IdempotencyKey: uuid.New().String(),
		Details:        details,
	})
	if err != nil {
		instr.recordJobSubmission(string(jobqueue.TypeFailoverExecute), "rejected")
		return nil, NewSubmissionError("failover job submission rejected", err).WithGroup(s.group.ID)
	}
	instr.recordJobSubmission(string(jobqueue.TypeFailoverExecute), "accepted")
	instr.recordFailoverStarted(failoverType)

	event := &FailoverEvent{
		ID:                  uuid.New().String(),
		GroupID:             s.group.ID,
		FailoverType:        s.config.FailoverType,
		Status:              EventPending,
		JobID:               jobID,
		StartedAt:           m.deps.Clock.Now(),
		TestDurationMinutes: s.config.TestDurationMinutes,
	}
	if err := m.deps.Events.CreateFailoverEvent(ctx, event); err != nil {
		// The job is already submitted and cannot be unsubmitted. Losing
		// the tracking record is preferable to abandoning a running
		// production failover.
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failover event record not persisted")
	}
	s.event = event

	if ev := instr.events(); ev != nil {
		_ = ev.PublishFailoverStarted(s.group.ID, event.ID, failoverType)
	}
	logger := s.logger.With().Str("job_id", jobID).Str("failover_event_id", event.ID).Logger()
	logger.Info().Str("failover_type", failoverType).Msg("failover job submitted")

	timer := telemetry.NewTimer()
	var seenRunning bool
	job, err := pollUntilTerminal(ctx, m.deps.Queue, jobID, pollOptions{
		interval:    m.opts.ExecutePollInterval,
		timeout:     m.opts.ExecuteTimeout,
		timeoutCode: ErrCodeExecutionTimeout,
		jobType:     jobqueue.TypeFailoverExecute,
		instr:       instr,
		onPoll: func(job *jobqueue.Job) {
			if job.Status == jobqueue.StatusRunning && !seenRunning {
				seenRunning = true
				s.transitionEvent(ctx, EventInProgress, "")
			}
			if job.Status.IsTerminal() || onProgress == nil {
				return
			}
			d, derr := jobqueue.DecodeFailoverDetails(job)
			if derr != nil || (d.CurrentStep == "" && d.Progress == 0) {
				return
			}
			onProgress(ExecutionProgress{CurrentStep: d.CurrentStep, Percent: d.Progress})
		},
	})
	if err != nil {
		// Fail-closed: the job's true state is unknown, so the event is
		// left non-terminal and keeps blocking new submissions until
		// resolved out of band.
		instr.recordFailoverCompleted(failoverType, "unknown", timer.Duration())
		var oe *OrchestrationError
		if errors.As(err, &oe) {
			oe.GroupID = s.group.ID
			return nil, oe
		}
		return nil, NewPollError("failover polling aborted", err).WithGroup(s.group.ID).WithJob(jobID)
	}

	return s.finishExecution(ctx, job, timer.Duration(), logger)
}

// finishExecution interprets the terminal job record. Success requires a
// completed status and no explicit success=false in the result payload; an
// absent success field means success.
func (s *FailoverSession) finishExecution(ctx context.Context, job *jobqueue.Job, elapsed time.Duration, logger zerolog.Logger) (*FailoverOutcome, error) {
	m := s.machine
	instr := m.deps.Instrumentation
	failoverType := string(s.config.FailoverType)

	d, derr := jobqueue.DecodeFailoverDetails(job)
	if derr != nil {
		instr.recordFailoverCompleted(failoverType, "unknown", elapsed)
		return nil, NewPollError("failover result unreadable", derr).WithGroup(s.group.ID).WithJob(job.ID)
	}

	if job.Status == jobqueue.StatusFailed {
		msg := "failover job failed"
		if d.Error != "" {
			msg = d.Error
		} else if d.Result != nil && d.Result.Message != "" {
			msg = d.Result.Message
		}
		s.transitionEvent(ctx, EventFailed, msg)
		instr.recordFailoverCompleted(failoverType, "failed", elapsed)
		s.publishFailure(msg, d)

		err := NewJobFailedError(msg, nil).WithGroup(s.group.ID).WithJob(job.ID)
		if d.Result != nil && len(d.Result.FailedVMs) > 0 {
			err = err.WithDetail("failed_vms", d.Result.FailedVMs)
		}
		return nil, err
	}

	outcome := &FailoverOutcome{
		Success:  d.Result.Succeeded(),
		Duration: d.Duration(),
	}
	if d.Result != nil {
		outcome.Message = d.Result.Message
		for _, vm := range d.Result.FailedVMs {
			outcome.FailedVMs = append(outcome.FailedVMs, FailedVM{Name: vm.Name, Reason: vm.Reason})
		}
	}

	switch {
	case d.EventStatus == string(EventAwaitingCommit):
		// Only live failovers are parked here by the executor.
		outcome.AwaitingCommit = true
		s.transitionEvent(ctx, EventAwaitingCommit, "")
		instr.recordFailoverCompleted(failoverType, "awaiting_commit", elapsed)
		logger.Info().Msg("failover awaiting commit decision")

	case !outcome.Success:
		msg := outcome.Message
		if msg == "" {
			msg = "executor reported failover unsuccessful"
		}
		s.transitionEvent(ctx, EventFailed, msg)
		instr.recordFailoverCompleted(failoverType, "failed", elapsed)
		s.publishFailure(msg, d)
		logger.Warn().Int("failed_vms", len(outcome.FailedVMs)).Msg("failover completed unsuccessfully")

	case s.config.FailoverType == FailoverTest:
		// A successful test stays in_progress until its cleanup rollback;
		// the duration window opens when the DR VMs come up.
		s.transitionEvent(ctx, EventInProgress, "")
		deadline := m.deps.Clock.Now().Add(time.Duration(s.config.TestDurationMinutes) * time.Minute)
		s.event.CleanupScheduledAt = &deadline
		if err := m.deps.Events.ScheduleCleanup(ctx, s.event.ID, deadline); err != nil {
			logger.Error().Err(err).Msg("cleanup deadline not persisted")
		}
		instr.recordFailoverCompleted(failoverType, "succeeded", elapsed)
		if ev := instr.events(); ev != nil {
			_ = ev.PublishFailoverCompleted(s.group.ID, s.event.ID, failoverType, elapsed)
		}
		logger.Info().Time("cleanup_at", deadline).Msg("test failover running")

	default:
		s.transitionEvent(ctx, EventCompleted, "")
		instr.recordFailoverCompleted(failoverType, "succeeded", elapsed)
		if ev := instr.events(); ev != nil {
			_ = ev.PublishFailoverCompleted(s.group.ID, s.event.ID, failoverType, elapsed)
		}
		logger.Info().Dur("elapsed", elapsed).Msg("failover completed")
	}

	return outcome, nil
}

func (s *FailoverSession) publishFailure(msg string, d *jobqueue.FailoverDetails) {
	ev := s.machine.deps.Instrumentation.events()
	if ev == nil {
		return
	}
	var names []string
	if d != nil && d.Result != nil {
		for _, vm := range d.Result.FailedVMs {
			names = append(names, vm.Name)
		}
	}
	_ = ev.PublishFailoverFailed(s.group.ID, s.event.ID, msg, names)
}

// transitionEvent records an event status change, both in the store and on
// the in-memory record.
func (s *FailoverSession) transitionEvent(ctx context.Context, status FailoverEventStatus, errMsg string) {
	if s.event == nil {
		return
	}
	s.event.Status = status
	s.event.ErrorMessage = errMsg
	if status.IsTerminal() {
		now := s.machine.deps.Clock.Now()
		s.event.CompletedAt = &now
	}
	if err := s.machine.deps.Events.UpdateFailoverEventStatus(ctx, s.event.ID, status, errMsg); err != nil {
		s.logger.Error().Err(err).Str("status", string(status)).Msg("failover event status not persisted")
	}
}

// Commit finalizes a live failover that is awaiting the operator's decision,
// discarding the rollback path.
func (s *FailoverSession) Commit(ctx context.Context) error {
	if err := s.requireDecisionPending("commit"); err != nil {
		return err
	}
	return s.machine.deps.Decisions.Commit(ctx, s.event)
}

// Rollback undoes a live failover that is awaiting the operator's decision,
// powering off the DR VMs and reverting the group.
func (s *FailoverSession) Rollback(ctx context.Context) error {
	if err := s.requireDecisionPending("rollback"); err != nil {
		return err
	}
	return s.machine.deps.Decisions.Rollback(ctx, s.event)
}

func (s *FailoverSession) requireDecisionPending(op string) error {
	if s.state != StateComplete || s.event == nil || s.event.Status != EventAwaitingCommit {
		return NewValidationError(op+" requires a failover awaiting the commit decision", nil).
			WithGroup(s.group.ID).
			WithCode(ErrCodeInvalidTransition)
	}
	return nil
}
