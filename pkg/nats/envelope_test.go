package nats

import (
	"testing"

	"ai-act-advisor-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ev := events.NewEvent(events.SessionClassified, map[string]interface{}{
		"session_id": "s-1",
		"risk_level": "HIGH_RISK",
	})

	data, err := encode(ev)
	require.NoError(t, err)

	got, err := decode(Subject(ev.EventType()), data)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, events.SessionClassified, got.EventType())
	assert.Equal(t, "HIGH_RISK", got.Payload()["risk_level"])
	assert.True(t, ev.OccurredAt.Equal(got.OccurredAt))
}

func TestDecodeBarePayload(t *testing.T) {
	got, err := decode("events.advisor.session_reset", []byte(`{"session_id":"s-2"}`))
	require.NoError(t, err)
	assert.Equal(t, events.SessionReset, got.EventType())
	assert.Equal(t, "s-2", got.Payload()["session_id"])
	assert.False(t, got.Timestamp().IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("events.x", []byte(`not json`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.advisor.question_asked", Subject(events.QuestionAsked))
	assert.Equal(t, "advisor.x", trimPrefix("events.advisor.x"))
	assert.Equal(t, "other", trimPrefix("other"))
}
