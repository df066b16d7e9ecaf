package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the Replicore system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// GroupID is the associated protection group ID, if applicable.
	GroupID string `json:"group_id,omitempty"`

	// JobID is the associated job ID, if applicable.
	JobID string `json:"job_id,omitempty"`

	// FailoverEventID is the associated failover event ID, if applicable.
	FailoverEventID string `json:"failover_event_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypePreflightStarted   = "preflight.started"
	EventTypePreflightCompleted = "preflight.completed"
	EventTypePreflightBlocked   = "preflight.blocked"
	EventTypeFailoverStarted    = "failover.started"
	EventTypeFailoverCompleted  = "failover.completed"
	EventTypeFailoverFailed     = "failover.failed"
	EventTypeFailoverCommitted  = "failover.committed"
	EventTypeFailoverRolledBack = "failover.rolled_back"
	EventTypeCleanupDue         = "test_failover.cleanup_due"
	EventTypeDiagnosisRaised    = "diagnosis.raised"
	EventTypeGuardrailDenied    = "guardrail.denied"
	EventTypeError              = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishPreflightStarted publishes a preflight started event.
func (ep *EventPublisher) PublishPreflightStarted(groupID, jobID string) error {
	return ep.Publish(Event{
		Type:    EventTypePreflightStarted,
		Source:  "preflight",
		GroupID: groupID,
		JobID:   jobID,
		Message: fmt.Sprintf("Preflight check started for group %s", groupID),
		Level:   EventLevelInfo,
	})
}

// PublishPreflightCompleted publishes a preflight completed event.
func (ep *EventPublisher) PublishPreflightCompleted(groupID string, ready bool, blockers, warnings int) error {
	level := EventLevelInfo
	eventType := EventTypePreflightCompleted
	if !ready {
		level = EventLevelWarning
		eventType = EventTypePreflightBlocked
	}
	return ep.Publish(Event{
		Type:    eventType,
		Source:  "preflight",
		GroupID: groupID,
		Message: fmt.Sprintf("Preflight for group %s completed: ready=%t (%d blockers, %d warnings)", groupID, ready, blockers, warnings),
		Level:   level,
		Data: map[string]interface{}{
			"ready":    ready,
			"blockers": blockers,
			"warnings": warnings,
		},
	})
}

// PublishFailoverStarted publishes a failover started event.
func (ep *EventPublisher) PublishFailoverStarted(groupID, eventID, failoverType string) error {
	return ep.Publish(Event{
		Type:            EventTypeFailoverStarted,
		Source:          "failover",
		GroupID:         groupID,
		FailoverEventID: eventID,
		Message:         fmt.Sprintf("%s failover started for group %s", failoverType, groupID),
		Level:           EventLevelInfo,
		Data: map[string]interface{}{
			"failover_type": failoverType,
		},
	})
}

// PublishFailoverCompleted publishes a failover completed event.
func (ep *EventPublisher) PublishFailoverCompleted(groupID, eventID, failoverType string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:            EventTypeFailoverCompleted,
		Source:          "failover",
		GroupID:         groupID,
		FailoverEventID: eventID,
		Message:         fmt.Sprintf("%s failover for group %s completed", failoverType, groupID),
		Level:           EventLevelInfo,
		Data: map[string]interface{}{
			"failover_type": failoverType,
			"duration":      duration.Seconds(),
		},
	})
}

// PublishFailoverFailed publishes a failover failed event.
func (ep *EventPublisher) PublishFailoverFailed(groupID, eventID, reason string, failedVMs []string) error {
	return ep.Publish(Event{
		Type:            EventTypeFailoverFailed,
		Source:          "failover",
		GroupID:         groupID,
		FailoverEventID: eventID,
		Message:         fmt.Sprintf("Failover for group %s failed: %s", groupID, reason),
		Level:           EventLevelError,
		Data: map[string]interface{}{
			"reason":     reason,
			"failed_vms": failedVMs,
		},
	})
}

// PublishCommitDecision publishes a commit or rollback decision for a live failover.
func (ep *EventPublisher) PublishCommitDecision(groupID, eventID string, committed bool) error {
	eventType := EventTypeFailoverCommitted
	verb := "committed"
	if !committed {
		eventType = EventTypeFailoverRolledBack
		verb = "rolled back"
	}
	return ep.Publish(Event{
		Type:            eventType,
		Source:          "failover",
		GroupID:         groupID,
		FailoverEventID: eventID,
		Message:         fmt.Sprintf("Live failover for group %s %s", groupID, verb),
		Level:           EventLevelInfo,
	})
}

// PublishCleanupDue publishes an event when a test failover reaches its cleanup deadline.
func (ep *EventPublisher) PublishCleanupDue(groupID, eventID string) error {
	return ep.Publish(Event{
		Type:            EventTypeCleanupDue,
		Source:          "lifecycle",
		GroupID:         groupID,
		FailoverEventID: eventID,
		Message:         fmt.Sprintf("Test failover cleanup due for group %s", groupID),
		Level:           EventLevelWarning,
	})
}

// PublishDiagnosisRaised publishes an SLA diagnosis event.
func (ep *EventPublisher) PublishDiagnosisRaised(groupID, code, severity, title string) error {
	level := EventLevelWarning
	if severity == "critical" {
		level = EventLevelError
	}
	return ep.Publish(Event{
		Type:    EventTypeDiagnosisRaised,
		Source:  "diagnostics",
		GroupID: groupID,
		Message: fmt.Sprintf("SLA diagnosis for group %s: %s", groupID, title),
		Level:   level,
		Data: map[string]interface{}{
			"code":     code,
			"severity": severity,
		},
	})
}

// PublishGuardrailDenied publishes a guardrail policy denial event.
func (ep *EventPublisher) PublishGuardrailDenied(groupID, policyName, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeGuardrailDenied,
		Source:  "guardrails",
		GroupID: groupID,
		Message: fmt.Sprintf("Failover for group %s denied by policy %s: %s", groupID, policyName, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-time.After(ep.config.FlushInterval):
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByGroupID creates a filter that only allows events for a specific protection group.
func FilterByGroupID(groupID string) EventFilter {
	return func(event Event) bool {
		return event.GroupID == groupID
	}
}
