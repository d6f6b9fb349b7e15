// Package kafka publishes audit events to a Kafka topic for downstream
// consumers (SIEM, long-term archival).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "modzero/pkg/platform/audit"
)

// DefaultTopic is the topic audit events are produced to unless overridden.
const DefaultTopic = "modzero.auditEvents"

// Sink produces audit events to Kafka. It implements audit.Appender; the
// publisher treats it as best-effort fan-out, so a broker outage never blocks
// a trust decision.
type Sink struct {
	client *kgo.Client
	topic  string
}

// Option configures a Sink.
type Option func(*Sink)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(s *Sink) {
		s.topic = topic
	}
}

// NewSink connects a producer to the given seed brokers.
func NewSink(brokers []string, opts ...Option) (*Sink, error) {
	s := &Sink{topic: DefaultTopic}
	for _, opt := range opts {
		opt(s)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(s.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s.client = client
	return s, nil
}

// payload is the JSON wire shape of an audit event.
type payload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	IP        string `json:"ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

// Append produces one event. The record key is the user ID so per-subject
// ordering is preserved within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	body := payload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		IP:        event.IP,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	if !event.UserID.IsNil() {
		body.UserID = event.UserID.String()
	}

	value, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(body.UserID),
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
