package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all advisor lifecycle events.
type Event interface {
	// EventType returns the dotted code for this event (e.g. "advisor.session_created").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	SessionCreated    = "advisor.session_created"
	QuestionAsked     = "advisor.question_asked"
	SessionClassified = "advisor.session_classified"
	PracticeFlagged   = "advisor.practice_flagged"
	SessionReset      = "advisor.session_reset"
	SessionDeleted    = "advisor.session_deleted"
)

type BaseEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh id and the current UTC time.
func NewEvent(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
