// Package eventbus publishes report lifecycle events over NATS JetStream
// so other services can react to finished reports.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	nc "github.com/nats-io/nats.go"
)

// Topics for report lifecycle events.
const (
	TopicReportRequested = "report.requested"
	TopicReportCompleted = "report.completed"
	TopicReportFailed    = "report.failed"
)

const streamName = "report"

// EventBus publishes and consumes report lifecycle events.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error
	Close() error
}

// JetStreamEventBus implements EventBus on NATS JetStream via watermill.
type JetStreamEventBus struct {
	logger     watermill.LoggerAdapter
	conn       *nc.Conn
	js         nc.JetStreamContext
	publisher  *wmnats.Publisher
	subscriber *wmnats.Subscriber
}

var _ EventBus = (*JetStreamEventBus)(nil)

// NewJetStreamEventBus connects to NATS and provisions the report stream.
func NewJetStreamEventBus(natsURL string, logger watermill.LoggerAdapter) (*JetStreamEventBus, error) {
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in subscription", err, watermill.LogFields{
					"subject": s.Subject,
					"queue":   s.Queue,
				})
			} else {
				logger.Error("Error in connection", err, nil)
			}
		}),
	}

	conn, err := nc.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		return nil, err
	}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: options,
			Marshaler:   &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:         natsURL,
			NatsOptions: options,
			Unmarshaler: &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	return &JetStreamEventBus{
		logger:     logger,
		conn:       conn,
		js:         js,
		publisher:  publisher,
		subscriber: subscriber,
	}, nil
}

func ensureStream(js nc.JetStreamContext) error {
	info, err := js.StreamInfo(streamName)
	if err != nil && err != nc.ErrStreamNotFound {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	if info != nil {
		return nil
	}
	_, err = js.AddStream(&nc.StreamConfig{
		Name:     streamName,
		Subjects: []string{fmt.Sprintf("%s.>", streamName)},
	})
	if err != nil {
		return fmt.Errorf("failed to add stream: %w", err)
	}
	return nil
}

// Publish marshals payload to JSON and publishes it on topic.
func (b *JetStreamEventBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("published_at", time.Now().UTC().Format(time.RFC3339))

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe registers handler for topic. Handler errors nack the message.
func (b *JetStreamEventBus) Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error {
	consumerName := fmt.Sprintf("%s-consumer", streamName)
	_, err := b.js.AddConsumer(streamName, &nc.ConsumerConfig{
		Durable:       consumerName,
		DeliverPolicy: nc.DeliverAllPolicy,
		AckPolicy:     nc.AckExplicitPolicy,
		FilterSubject: topic,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	go func() {
		for msg := range messages {
			if err := handler(ctx, msg); err != nil {
				b.logger.Error("Error handling message", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        topic,
				})
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts down the publisher, subscriber, and NATS connection.
func (b *JetStreamEventBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	if err := b.subscriber.Close(); err != nil {
		return fmt.Errorf("failed to close subscriber: %w", err)
	}
	b.conn.Close()
	return nil
}

// NoOpEventBus satisfies EventBus when NATS is not configured.
type NoOpEventBus struct{}

func (NoOpEventBus) Publish(context.Context, string, any) error { return nil }
func (NoOpEventBus) Subscribe(context.Context, string, func(context.Context, *message.Message) error) error {
	return nil
}
func (NoOpEventBus) Close() error { return nil }
