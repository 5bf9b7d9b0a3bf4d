// Package events defines the domain events emitted by the books service and
// the publishers that deliver them.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// TopicVoucherCreated is the default topic for VoucherCreated.
const TopicVoucherCreated = "voucher_created"

// Publisher delivers an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// VoucherCreated is emitted once per persisted voucher.
type VoucherCreated struct {
	VoucherID     string    `json:"voucher_id"`
	CompanyID     string    `json:"company_id"`
	VoucherType   string    `json:"voucher_type"`
	VoucherNumber string    `json:"voucher_number"`
	Total         string    `json:"total"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LogPublisher writes events to a logger instead of a broker.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	l := p.Log
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "event", "topic", topic, "payload", string(data))
	return nil
}

// Recorder keeps published events in memory, for tests and dev seeding.
type Recorder struct {
	Events []Recorded
}

type Recorded struct {
	Topic string
	Event any
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.Events = append(r.Events, Recorded{Topic: topic, Event: event})
	return nil
}

// PartitionKey groups a company's vouchers.
func (e VoucherCreated) PartitionKey() string { return e.CompanyID }
