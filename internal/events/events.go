package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a task lifecycle transition.
type EventType string

// Task lifecycle event types.
const (
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskToggled EventType = "task.toggled"
	TaskDeleted EventType = "task.deleted"
)

// AllEventTypes lists every event type in lifecycle order.
var AllEventTypes = []EventType{TaskCreated, TaskUpdated, TaskToggled, TaskDeleted}

// TaskEvent records a change to a single task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   EventType `json:"type"`
	TaskID uuid.UUID `json:"taskId"`
	UserID uuid.UUID `json:"userId"`

	// Payload holds type-specific details serialized as JSON, e.g. the
	// changed field names of an update.
	Payload json.RawMessage `json:"payload,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates a TaskEvent. payload may be nil.
func NewTaskEvent(eventType EventType, taskID, userID uuid.UUID, payload any) (*TaskEvent, error) {
	event := &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Payload = payloadBytes
	}
	return event, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns the first handler error, after every handler has run.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
