package orchestrator

import (
	"context"
	"time"

	"github.com/replicore/replicore/pkg/jobqueue"
)

// pollOptions configures a poll-until-terminal loop.
type pollOptions struct {
	// interval is the fixed delay between polls.
	interval time.Duration

	// timeout bounds the whole loop. Zero means unbounded.
	timeout time.Duration

	// timeoutCode is the error code attached to a timeout error.
	timeoutCode string

	// jobType labels metrics.
	jobType jobqueue.JobType

	// onPoll is invoked with every successfully read job record, including
	// the terminal one.
	onPoll func(job *jobqueue.Job)

	// instr receives poll metrics.
	instr *Instrumentation
}

// pollUntilTerminal polls a job at a fixed interval until it reaches a
// terminal status. It returns the terminal job record, or a classified error:
// poll-class on a read failure (fail-closed, never retried), timeout-class
// when the bound elapses, and the context error on cancellation. Cancellation
// stops scheduling the next poll; an in-flight read is abandoned and its
// result discarded by the ctx check after it returns.
func pollUntilTerminal(ctx context.Context, client jobqueue.Client, jobID string, opts pollOptions) (*jobqueue.Job, error) {
	if opts.interval <= 0 {
		opts.interval = time.Second
	}

	var deadline <-chan time.Time
	if opts.timeout > 0 {
		timer := time.NewTimer(opts.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		opts.instr.recordJobPoll(string(opts.jobType))
		job, err := client.Poll(ctx, jobID)
		if err != nil {
			// The machine may have been torn down while the read was in
			// flight; a cancellation is not a transport failure.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			opts.instr.recordPollError(string(opts.jobType))
			return nil, NewPollError("job status read failed", err).WithJob(jobID)
		}
		if ctx.Err() != nil {
			// Torn down mid-read: discard the result.
			return nil, ctx.Err()
		}

		if opts.onPoll != nil {
			opts.onPoll(job)
		}

		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, NewTimeoutError("job did not reach a terminal status in time", nil).
				WithJob(jobID).
				WithCode(opts.timeoutCode)
		case <-ticker.C:
		}
	}
}
