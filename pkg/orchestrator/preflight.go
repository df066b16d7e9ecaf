package orchestrator

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/jobqueue"
	"github.com/replicore/replicore/pkg/telemetry"
)

// Default preflight polling parameters. The source system polled without a
// bound; a stuck preflight job would have been polled forever, so a timeout
// is imposed here and reported as a distinct condition.
const (
	DefaultPreflightPollInterval = time.Second
	DefaultPreflightTimeout      = 3 * time.Minute
)

// PreflightOptions configures a PreflightEvaluator.
type PreflightOptions struct {
	// PollInterval is the fixed delay between job polls.
	PollInterval time.Duration

	// Timeout bounds the whole evaluation.
	Timeout time.Duration
}

// PreflightEvaluator requests a preflight safety job for a protection group,
// polls it to completion, and classifies the returned checks into blockers
// and warnings.
type PreflightEvaluator struct {
	queue  jobqueue.Client
	logger zerolog.Logger
	instr  *Instrumentation
	opts   PreflightOptions
}

// NewPreflightEvaluator creates a preflight evaluator.
func NewPreflightEvaluator(queue jobqueue.Client, logger zerolog.Logger, instr *Instrumentation, opts PreflightOptions) *PreflightEvaluator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPreflightPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPreflightTimeout
	}
	return &PreflightEvaluator{
		queue:  queue,
		logger: logger.With().Str("component", "preflight").Logger(),
		instr:  instr,
		opts:   opts,
	}
}

// preflightSubmission is the submission payload for a preflight job.
type preflightSubmission struct {
	ProtectionGroupID string `json:"protection_group_id"`
}

// Evaluate submits a preflight job for the group and streams progress
// updates followed by exactly one terminal update carrying either the
// classified result or an error. The returned channel is closed after the
// terminal update. Cancelling ctx stops polling; the remote job is left to
// finish on its own.
func (e *PreflightEvaluator) Evaluate(ctx context.Context, groupID string) <-chan PreflightUpdate {
	updates := make(chan PreflightUpdate, 8)

	go func() {
		defer close(updates)

		timer := telemetry.NewTimer()
		result, err := e.run(ctx, groupID, updates)
		if err != nil {
			e.instr.recordPreflightCompleted(outcomeForError(err), timer.Duration())
			e.instr.recordError(err)
			e.send(ctx, updates, PreflightUpdate{Err: err})
			return
		}

		outcome := "ready"
		if !result.Ready {
			outcome = "blocked"
		}
		e.instr.recordPreflightCompleted(outcome, timer.Duration())
		if ev := e.instr.events(); ev != nil {
			_ = ev.PublishPreflightCompleted(groupID, result.Ready, len(result.Blockers), len(result.Warnings))
		}
		e.send(ctx, updates, PreflightUpdate{Result: result})
	}()

	return updates
}

// Run evaluates preflight and blocks until the terminal result, discarding
// intermediate progress.
func (e *PreflightEvaluator) Run(ctx context.Context, groupID string) (*PreflightResult, error) {
	var result *PreflightResult
	var err error
	for update := range e.Evaluate(ctx, groupID) {
		if update.Result != nil {
			result = update.Result
		}
		if update.Err != nil {
			err = update.Err
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		// Consumer cancelled before the terminal update arrived.
		return nil, ctx.Err()
	}
	return result, nil
}

func (e *PreflightEvaluator) run(ctx context.Context, groupID string, updates chan<- PreflightUpdate) (result *PreflightResult, err error) {
	ctx, endSpan := e.instr.startPreflightSpan(ctx, groupID)
	defer func() { endSpan(err) }()

	details, err := jobqueue.EncodeDetails(preflightSubmission{ProtectionGroupID: groupID})
	if err != nil {
		return nil, NewSubmissionError("encode preflight request", err).WithGroup(groupID)
	}

	e.instr.recordPreflightStarted(groupID)

	jobID, err := e.queue.Submit(ctx, jobqueue.Request{
		JobType:        jobqueue.TypePreflightCheck,
		TargetScope:    groupID,
		IdempotencyKey: uuid.New().String(),
		Details:        details,
	})
	if err != nil {
		e.instr.recordJobSubmission(string(jobqueue.TypePreflightCheck), "rejected")
		return nil, NewSubmissionError("preflight job submission rejected", err).WithGroup(groupID)
	}
	e.instr.recordJobSubmission(string(jobqueue.TypePreflightCheck), "accepted")

	if ev := e.instr.events(); ev != nil {
		_ = ev.PublishPreflightStarted(groupID, jobID)
	}

	logger := e.logger.With().Str("group_id", groupID).Str("job_id", jobID).Logger()
	logger.Info().Msg("preflight job submitted")

	job, err := pollUntilTerminal(ctx, e.queue, jobID, pollOptions{
		interval:    e.opts.PollInterval,
		timeout:     e.opts.Timeout,
		timeoutCode: ErrCodePreflightTimeout,
		jobType:     jobqueue.TypePreflightCheck,
		instr:       e.instr,
		onPoll: func(job *jobqueue.Job) {
			if job.Status.IsTerminal() {
				return
			}
			d, derr := jobqueue.DecodePreflightDetails(job)
			if derr != nil {
				return
			}
			// Missing progress fields are normal, not an error; there is
			// just nothing to surface yet.
			if d.CurrentStep == "" && d.ChecksCompleted == 0 && d.TotalChecks == 0 {
				return
			}
			e.send(ctx, updates, PreflightUpdate{Progress: &PreflightProgress{
				CurrentStep:     d.CurrentStep,
				ChecksCompleted: d.ChecksCompleted,
				TotalChecks:     d.TotalChecks,
			}})
		},
	})
	if err != nil {
		var oe *OrchestrationError
		if errors.As(err, &oe) {
			oe.GroupID = groupID
			return nil, oe
		}
		return nil, NewPollError("preflight polling aborted", err).WithGroup(groupID).WithJob(jobID)
	}

	if job.Status == jobqueue.StatusFailed {
		d, _ := jobqueue.DecodePreflightDetails(job)
		msg := "preflight job failed"
		if d != nil && d.Error != "" {
			msg = d.Error
		}
		return nil, NewJobFailedError(msg, nil).WithGroup(groupID).WithJob(jobID)
	}

	d, derr := jobqueue.DecodePreflightDetails(job)
	if derr != nil {
		return nil, NewPollError("preflight result unreadable", derr).WithGroup(groupID).WithJob(jobID)
	}
	checks := d.Checks()
	if checks == nil {
		// A completed job with neither result key is a broken executor
		// contract. Fail closed rather than reporting an empty, "ready"
		// check list.
		return nil, NewJobFailedError("preflight job completed without results", nil).
			WithGroup(groupID).
			WithJob(jobID)
	}

	result = ClassifyPreflight(checks, d.CanForce)
	logger.Info().
		Bool("ready", result.Ready).
		Int("blockers", len(result.Blockers)).
		Int("warnings", len(result.Warnings)).
		Bool("can_force", result.CanForce).
		Msg("preflight completed")

	return result, nil
}

func (e *PreflightEvaluator) send(ctx context.Context, updates chan<- PreflightUpdate, u PreflightUpdate) {
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

// ClassifyPreflight classifies a normalized check map: a failed non-warning
// check is a blocker, a failed warning check is a warning, and the group is
// ready iff there are no blockers, independent of warning count.
func ClassifyPreflight(checks map[string]jobqueue.RawCheck, canForce bool) *PreflightResult {
	result := &PreflightResult{
		Checks:   make(map[string]CheckResult, len(checks)),
		CanForce: canForce,
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := checks[name]
		cr := CheckResult{Passed: raw.Passed, IsWarning: raw.IsWarning, Message: raw.Message}
		result.Checks[name] = cr
		if raw.Passed {
			continue
		}
		named := NamedCheck{Name: name, CheckResult: cr}
		if raw.IsWarning {
			result.Warnings = append(result.Warnings, named)
		} else {
			result.Blockers = append(result.Blockers, named)
		}
	}

	result.Ready = len(result.Blockers) == 0
	return result
}

// outcomeForError maps a terminal preflight error onto a metrics outcome.
func outcomeForError(err error) string {
	switch ClassOf(err) {
	case ErrClassTimeout:
		return "timeout"
	default:
		return "error"
	}
}
