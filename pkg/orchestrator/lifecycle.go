package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CleanupPending is reported once a test failover's cleanup deadline has
// passed and the executor's auto-power-off is due. The countdown never shows
// a negative duration.
const CleanupPending = "cleanup pending"

// FormatCountdown renders a remaining duration for display. Magnitude picks
// the format: at least an hour renders as hours and minutes, at least a
// minute as minutes and seconds, otherwise whole seconds. Zero or negative
// remaining renders the cleanup-pending sentinel.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return CleanupPending
	}
	total := int(remaining / time.Second)
	switch {
	case total >= 3600:
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	case total >= 60:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%ds", total)
	}
}

// CountdownTick is one per-second observation of a test failover's remaining
// window.
type CountdownTick struct {
	// Remaining is the time left before cleanup, clamped at zero.
	Remaining time.Duration

	// Display is the rendered countdown, or the cleanup-pending sentinel.
	Display string

	// CleanupDue is true once the deadline has passed.
	CleanupDue bool
}

// TestFailoverLifecycleTimer tracks the auto-cleanup deadline of a running
// test failover. It is a derived view over the failover event: the executor
// owns the actual power-off, this timer only renders the countdown and
// offers early termination.
type TestFailoverLifecycleTimer struct {
	event     *FailoverEvent
	decisions *DecisionClient
	clock     Clock
	logger    zerolog.Logger
	instr     *Instrumentation
}

// NewTestFailoverLifecycleTimer creates a timer for a test failover event.
// The event must carry a cleanup deadline.
func NewTestFailoverLifecycleTimer(event *FailoverEvent, decisions *DecisionClient, clock Clock, logger zerolog.Logger, instr *Instrumentation) (*TestFailoverLifecycleTimer, error) {
	if event.FailoverType != FailoverTest {
		return nil, NewValidationError("lifecycle timer requires a test failover event", nil).WithGroup(event.GroupID)
	}
	if event.CleanupScheduledAt == nil {
		return nil, NewValidationError("test failover event has no cleanup deadline", nil).WithGroup(event.GroupID)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &TestFailoverLifecycleTimer{
		event:     event,
		decisions: decisions,
		clock:     clock,
		logger:    logger.With().Str("component", "lifecycle").Str("failover_event_id", event.ID).Logger(),
		instr:     instr,
	}, nil
}

// Remaining returns the time left before cleanup, clamped at zero.
func (t *TestFailoverLifecycleTimer) Remaining() time.Duration {
	remaining := t.event.CleanupScheduledAt.Sub(t.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Countdown renders the current remaining window.
func (t *TestFailoverLifecycleTimer) Countdown() string {
	return FormatCountdown(t.event.CleanupScheduledAt.Sub(t.clock.Now()))
}

func (t *TestFailoverLifecycleTimer) tick() CountdownTick {
	remaining := t.Remaining()
	return CountdownTick{
		Remaining:  remaining,
		Display:    FormatCountdown(t.event.CleanupScheduledAt.Sub(t.clock.Now())),
		CleanupDue: remaining == 0,
	}
}

// Run emits a CountdownTick once per second until ctx is cancelled. The
// first tick is emitted immediately. When the deadline passes, a cleanup-due
// event is published once and ticks keep flowing with the sentinel display;
// the executor performs the actual power-off on its own schedule.
func (t *TestFailoverLifecycleTimer) Run(ctx context.Context) <-chan CountdownTick {
	ticks := make(chan CountdownTick, 1)

	go func() {
		defer close(ticks)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		announced := false
		emit := func(tick CountdownTick) bool {
			if tick.CleanupDue && !announced {
				announced = true
				t.logger.Info().Msg("test failover cleanup due")
				if ev := t.instr.events(); ev != nil {
					_ = ev.PublishCleanupDue(t.event.GroupID, t.event.ID)
				}
			}
			select {
			case ticks <- tick:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(t.tick()) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !emit(t.tick()) {
					return
				}
			}
		}
	}()

	return ticks
}

// EndNow terminates the test failover early. It is the same rollback
// contract the commit decision uses: one remote operation powers off the DR
// VMs and reverts the group, whether invoked here or from the completion
// step.
func (t *TestFailoverLifecycleTimer) EndNow(ctx context.Context) error {
	t.logger.Info().Msg("test failover ended early")
	return t.decisions.Rollback(ctx, t.event)
}
