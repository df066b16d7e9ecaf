package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/jobqueue"
)

// Default decision polling parameters.
const (
	DefaultDecisionPollInterval = 2 * time.Second
	DefaultDecisionTimeout      = 30 * time.Minute
)

// DecisionOptions configures a DecisionClient.
type DecisionOptions struct {
	// PollInterval is the fixed delay between decision job polls.
	PollInterval time.Duration

	// Timeout bounds each decision's polling loop.
	Timeout time.Duration
}

// DecisionClient carries commit and rollback submissions for a failover
// event. Both the Complete step's Rollback action and the test-failover
// timer's early termination go through this one client, so ending a test
// early and undoing a live failover are the same remote contract. The
// requests are idempotent intents: the executor, not this client, decides
// what power operations they entail.
type DecisionClient struct {
	queue  jobqueue.Client
	events EventStore
	logger zerolog.Logger
	instr  *Instrumentation
	opts   DecisionOptions
}

// NewDecisionClient creates a decision client.
func NewDecisionClient(queue jobqueue.Client, events EventStore, logger zerolog.Logger, instr *Instrumentation, opts DecisionOptions) *DecisionClient {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultDecisionPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDecisionTimeout
	}
	return &DecisionClient{
		queue:  queue,
		events: events,
		logger: logger.With().Str("component", "decision").Logger(),
		instr:  instr,
		opts:   opts,
	}
}

// decisionSubmission is the submission payload for commit/rollback jobs.
type decisionSubmission struct {
	FailoverEventID string `json:"failover_event_id"`
}

// Commit finalizes a committed live failover: the rollback path is discarded
// and the event becomes completed.
func (c *DecisionClient) Commit(ctx context.Context, event *FailoverEvent) error {
	if err := c.run(ctx, event, jobqueue.TypeFailoverCommit, EventCompleted); err != nil {
		return err
	}
	if ev := c.instr.events(); ev != nil {
		_ = ev.PublishCommitDecision(event.GroupID, event.ID, true)
	}
	return nil
}

// Rollback powers off the DR VMs and reverts the group; the event becomes
// rolled_back. Used both to undo a live failover awaiting commit and to end
// a test failover, early or at its deadline.
func (c *DecisionClient) Rollback(ctx context.Context, event *FailoverEvent) error {
	if err := c.run(ctx, event, jobqueue.TypeFailoverRollback, EventRolledBack); err != nil {
		return err
	}
	if ev := c.instr.events(); ev != nil {
		_ = ev.PublishCommitDecision(event.GroupID, event.ID, false)
	}
	return nil
}

func (c *DecisionClient) run(ctx context.Context, event *FailoverEvent, jobType jobqueue.JobType, terminal FailoverEventStatus) (err error) {
	ctx, endSpan := c.instr.startJobSpan(ctx, string(jobType), "decision")
	defer func() { endSpan(err) }()

	details, err := jobqueue.EncodeDetails(decisionSubmission{FailoverEventID: event.ID})
	if err != nil {
		return NewSubmissionError("encode decision request", err).WithGroup(event.GroupID)
	}

	jobID, err := c.queue.Submit(ctx, jobqueue.Request{
		JobType:        jobType,
		TargetScope:    event.ID,
		IdempotencyKey: uuid.New().String(),
		Details:        details,
	})
	if err != nil {
		c.instr.recordJobSubmission(string(jobType), "rejected")
		return NewSubmissionError(string(jobType)+" submission rejected", err).WithGroup(event.GroupID)
	}
	c.instr.recordJobSubmission(string(jobType), "accepted")

	logger := c.logger.With().
		Str("group_id", event.GroupID).
		Str("failover_event_id", event.ID).
		Str("job_id", jobID).
		Logger()
	logger.Info().Str("job_type", string(jobType)).Msg("decision job submitted")

	job, err := pollUntilTerminal(ctx, c.queue, jobID, pollOptions{
		interval: c.opts.PollInterval,
		timeout:  c.opts.Timeout,
		jobType:  jobType,
		instr:    c.instr,
	})
	if err != nil {
		// Fail-closed: the event keeps its pre-decision status until the
		// true outcome is known.
		var oe *OrchestrationError
		if errors.As(err, &oe) {
			oe.GroupID = event.GroupID
			return oe
		}
		return NewPollError("decision polling aborted", err).WithGroup(event.GroupID).WithJob(jobID)
	}

	if job.Status == jobqueue.StatusFailed {
		d, _ := jobqueue.DecodeCommitDetails(job)
		msg := string(jobType) + " job failed"
		if d != nil && d.Message != "" {
			msg = d.Message
		}
		return NewJobFailedError(msg, nil).WithGroup(event.GroupID).WithJob(jobID)
	}

	event.Status = terminal
	if err := c.events.UpdateFailoverEventStatus(ctx, event.ID, terminal, ""); err != nil {
		logger.Error().Err(err).Str("status", string(terminal)).Msg("failover event status not persisted")
	}
	logger.Info().Str("status", string(terminal)).Msg("decision applied")
	return nil
}
