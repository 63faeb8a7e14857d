package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhohoai/study-engine/internal/domain"
)

// Event types
const (
	// TypeSessionCompleted is emitted once per finished study session.
	TypeSessionCompleted = "session.completed"
)

// Event is a notification about something that happened in the engine.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies the kind of event
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SessionCompleted is the payload of a TypeSessionCompleted event.
type SessionCompleted struct {
	SessionID       string         `json:"session_id"`
	UserID          string         `json:"user_id"`
	DeckID          int64          `json:"deck_id"`
	RemoteSessionID int64          `json:"remote_session_id"`
	DeckTitle       string         `json:"deck_title"`
	AnsweredCount   int            `json:"answered_count"`
	CorrectCount    int            `json:"correct_count"`
	WrongCount      int            `json:"wrong_count"`
	Summary         domain.Summary `json:"summary"`
	CompletedAt     time.Time      `json:"completed_at"`
}

// EventHandler defines an interface for components that can handle events.
// Handlers receive every emitted event and ignore the types they do not handle.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
