package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobEnqueued   EventType = "job_enqueued"
	EventResultSaved   EventType = "result_saved"
	EventJobRetry      EventType = "job_retry"
	EventJobFailed     EventType = "job_failed"
	EventDrainFinished EventType = "drain_finished"
	EventSessionChange EventType = "session_changed"
)

// AllEventTypes returns every event type the pipeline publishes
func AllEventTypes() []EventType {
	return []EventType{
		EventJobEnqueued,
		EventResultSaved,
		EventJobRetry,
		EventJobFailed,
		EventDrainFinished,
		EventSessionChange,
	}
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
