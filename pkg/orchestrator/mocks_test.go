package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/replicore/replicore/pkg/jobqueue"
)

// fakeQueue is a scripted job queue. Submit returns sequential job IDs and
// Poll replays a per-job sequence of records, repeating the last one.
type fakeQueue struct {
	mu        sync.Mutex
	submits   []jobqueue.Request
	submitErr error
	pollErr   error
	scripts   map[jobqueue.JobType][]*jobqueue.Job
	cursor    map[string]int
	byID      map[string]jobqueue.JobType
	submitted chan string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		scripts: make(map[jobqueue.JobType][]*jobqueue.Job),
		cursor:  make(map[string]int),
		byID:    make(map[string]jobqueue.JobType),
	}
}

func (q *fakeQueue) script(jobType jobqueue.JobType, jobs ...*jobqueue.Job) {
	q.scripts[jobType] = jobs
}

func (q *fakeQueue) Submit(ctx context.Context, req jobqueue.Request) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.submitErr != nil {
		return "", q.submitErr
	}
	q.submits = append(q.submits, req)
	id := fmt.Sprintf("job-%d", len(q.submits))
	q.byID[id] = req.JobType
	if q.submitted != nil {
		q.submitted <- id
	}
	return id, nil
}

func (q *fakeQueue) Poll(ctx context.Context, jobID string) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pollErr != nil {
		return nil, q.pollErr
	}
	script := q.scripts[q.byID[jobID]]
	if len(script) == 0 {
		return &jobqueue.Job{ID: jobID, Status: jobqueue.StatusPending}, nil
	}
	i := q.cursor[jobID]
	if i >= len(script) {
		i = len(script) - 1
	} else {
		q.cursor[jobID] = i + 1
	}
	job := *script[i]
	job.ID = jobID
	return &job, nil
}

func (q *fakeQueue) submitCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.submits)
}

func (q *fakeQueue) lastSubmit() jobqueue.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submits[len(q.submits)-1]
}

// fakeGroups serves a fixed set of protection groups.
type fakeGroups struct {
	groups map[string]*ProtectionGroup
}

func (g *fakeGroups) GetGroup(ctx context.Context, id string) (*ProtectionGroup, error) {
	group, ok := g.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s not found", id)
	}
	return group, nil
}

// fakeEventStore is an in-memory event store.
type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*FailoverEvent
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*FailoverEvent)}
}

func (s *fakeEventStore) CreateFailoverEvent(ctx context.Context, event *FailoverEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *fakeEventStore) UpdateFailoverEventStatus(ctx context.Context, id string, status FailoverEventStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s not found", id)
	}
	event.Status = status
	event.ErrorMessage = errMsg
	return nil
}

func (s *fakeEventStore) GetFailoverEvent(ctx context.Context, id string) (*FailoverEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	copied := *event
	return &copied, nil
}

func (s *fakeEventStore) ScheduleCleanup(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s not found", id)
	}
	event.CleanupScheduledAt = &at
	return nil
}

func (s *fakeEventStore) ActiveFailoverEvent(ctx context.Context, groupID string) (*FailoverEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.GroupID == groupID && !event.Status.IsTerminal() {
			copied := *event
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeEventStore) status(id string) FailoverEventStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Status
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// denyAllGuardrails denies every failover with one policy violation.
type denyAllGuardrails struct {
	policy string
}

func (g *denyAllGuardrails) EvaluateFailover(ctx context.Context, in *GuardrailInput) (*GuardrailDecision, error) {
	return &GuardrailDecision{
		Allowed: false,
		Violations: []GuardrailViolation{
			{Policy: g.policy, Level: GuardrailDeny, Message: "denied"},
		},
	}, nil
}
