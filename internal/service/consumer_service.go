package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink is where forwarded events end up; *nats.Publisher satisfies it.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sink       EventSink
	logger     logger.ILogger
}

// NewConsumerService forwards bus events to sink. A nil sink only logs them.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	sink EventSink,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sink:       sink,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil || event.Type == "" {
		cs.logger.Error("EVENTS", "Dropping malformed bus message", map[string]interface{}{
			"message_id": msg.UUID,
		})
		msg.Ack() // a redelivery would fail the same way
		return
	}

	if cs.sink == nil {
		cs.logger.Info("EVENTS", event.Type, event.Data)
		msg.Ack()
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Lifecycle events are best effort; a NATS outage must not stall the bus.
	if err := cs.sink.Publish(pubCtx, event); err != nil {
		cs.logger.Error("EVENTS", "Failed to forward event", map[string]interface{}{
			"type":  event.Type,
			"id":    event.ID,
			"error": err.Error(),
		})
	}
	msg.Ack()
}
