// Package kafka publishes audit events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "tripmate/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Store implements audit.Store by producing one record per event. Records are
// keyed by phone hash so one subject's events stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

// Dial creates a franz-go client for brokers producing to topic.
func Dial(brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka audit store: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return New(client, topic), nil
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// Append produces event and waits for the broker acknowledgement.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	rec, err := Encode(s.topic, event)
	if err != nil {
		return err
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (s *Store) Close() {
	s.producer.Close()
}

// Encode builds the Kafka record for event.
func Encode(topic string, event audit.Event) (*kgo.Record, error) {
	body, err := audit.MarshalEvent(event)
	if err != nil {
		return nil, err
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(event.PhoneHash),
		Value:     body,
		Timestamp: event.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}, nil
}
