package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls chan struct{} }

func (f *failingSink) Publish(ctx context.Context, e events.Event) error {
	f.calls <- struct{}{}
	return errors.New("nats down")
}

func newBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func TestEventsFlowFromPublisherToSink(t *testing.T) {
	bus := newBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingPublisher{}
	require.NoError(t, NewConsumerService(bus, "advisor_events", sink, logger.NewNopLogger()).Consume(ctx))

	pub := NewPublisherService("advisor_events", bus)
	ev := events.NewEvent(events.SessionCreated, map[string]interface{}{"session_id": "s-1"})
	require.NoError(t, pub.Publish(ctx, ev))

	require.Eventually(t, func() bool { return len(sink.types()) == 1 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	got := sink.events[0].(events.BaseEvent)
	sink.mu.Unlock()
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "s-1", got.Data["session_id"])
}

func TestConsumerAcksWhenSinkFails(t *testing.T) {
	bus := newBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &failingSink{calls: make(chan struct{}, 4)}
	require.NoError(t, NewConsumerService(bus, "t", sink, logger.NewNopLogger()).Consume(ctx))

	pub := NewPublisherService("t", bus)
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.SessionDeleted, nil)))
	require.NoError(t, pub.Publish(ctx, events.NewEvent(events.SessionDeleted, nil)))

	for i := 0; i < 2; i++ {
		select {
		case <-sink.calls:
		case <-time.After(time.Second):
			t.Fatal("event not forwarded")
		}
	}
	select {
	case <-sink.calls:
		t.Fatal("failed event was redelivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerDropsMalformedMessages(t *testing.T) {
	bus := newBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingPublisher{}
	require.NoError(t, NewConsumerService(bus, "t", sink, logger.NewNopLogger()).Consume(ctx))

	require.NoError(t, bus.Publish("t", message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, NewPublisherService("t", bus).Publish(ctx, events.NewEvent(events.SessionReset, nil)))

	require.Eventually(t, func() bool { return len(sink.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.SessionReset}, sink.types())
}
