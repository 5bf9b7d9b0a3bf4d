// Package kafka publishes domain events to Kafka with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a writer for the brokers. The topic is set per message,
// so one publisher serves every topic.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes event as JSON. key, when the event has one, keeps a
// company's events on one partition.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{Topic: topic, Value: data}
	if k, ok := event.(interface{ PartitionKey() string }); ok {
		msg.Key = []byte(k.PartitionKey())
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error { return p.writer.Close() }
