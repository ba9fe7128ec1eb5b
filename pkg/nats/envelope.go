package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-act-advisor-be/pkg/events"
)

const (
	StreamName    = "EVENTS"
	SubjectPrefix = "events."
)

// envelope is the wire shape of an event on the bus.
type envelope struct {
	ID         string                 `json:"id,omitempty"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Subject maps an event type to its NATS subject.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

func encode(event events.Event) ([]byte, error) {
	env := envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	}
	if base, ok := event.(events.BaseEvent); ok {
		env.ID = base.ID
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return data, nil
}

// decode accepts both envelopes and bare payload maps; for the latter the type
// is recovered from the subject.
func decode(subject string, data []byte) (events.BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if env.Type == "" || env.Data == nil {
		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return events.BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		env.Data = payload
		env.Type = trimPrefix(subject)
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return events.BaseEvent{ID: env.ID, Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}

func trimPrefix(subject string) string {
	if len(subject) > len(SubjectPrefix) && subject[:len(SubjectPrefix)] == SubjectPrefix {
		return subject[len(SubjectPrefix):]
	}
	return subject
}
