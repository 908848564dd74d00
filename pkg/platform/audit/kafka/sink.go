// Package kafka ships committed audit events to a Kafka topic for downstream
// compliance tooling. Delivery is at-least-once; consumers dedupe on the
// request ID when they need exactly-once views.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "salegate/pkg/platform/audit"
)

// DefaultTopic is where sale audit events land unless configured otherwise.
const DefaultTopic = "salegate.audit.v1"

// Sink publishes audit events to Kafka.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the topic exists. Partitioning by
// account keeps each account's event history ordered.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	// Existing topic is fine; anything else is a startup failure.
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", resp.Err)
	}
	return &Sink{client: client, topic: topic}, nil
}

func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Account.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
