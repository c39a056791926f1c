// Package kafka publishes capture lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/reveriehq/reverie/pkg/eventstream"
)

// DefaultTopic is the topic events are written to when none is configured.
const DefaultTopic = "reverie.captures"

// Publisher writes capture events to Kafka. Messages are keyed by profile
// ID so a profile's events land on one partition and stay ordered.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka-backed publisher for the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	if topic == "" {
		topic = DefaultTopic
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

// PublishCaptureProcessed serializes the event and writes it to the topic.
func (p *Publisher) PublishCaptureProcessed(ctx context.Context, event *eventstream.CaptureProcessedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling capture event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProfileID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing capture event: %w", err)
	}

	return nil
}

// Close flushes pending writes and releases the underlying connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
