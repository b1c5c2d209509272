package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bucketlist/pkg/platform/circuit"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces audit events to a Kafka topic keyed by user id. While
// the breaker is open, batches go to the fallback sink instead.
type KafkaSink struct {
	client   *kgo.Client
	topic    string
	breaker  *circuit.Breaker
	fallback Sink
	logger   *slog.Logger
}

type kafkaPayload struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Timestamp string            `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// NewKafkaSink connects to brokers and ensures topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, fallback Sink, logger *slog.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	if err := ensureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{
		client:   client,
		topic:    topic,
		breaker:  circuit.New("audit-kafka"),
		fallback: fallback,
		logger:   logger,
	}, nil
}

func ensureTopic(ctx context.Context, adm *kadm.Client, topic string) error {
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *KafkaSink) Write(ctx context.Context, events []Event) error {
	if !s.breaker.Allow() {
		return s.writeFallback(ctx, events)
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		rec, err := toRecord(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if useFallback, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "audit kafka circuit opened", "error", err)
		} else if !useFallback {
			return fmt.Errorf("produce audit events: %w", err)
		}
		return s.writeFallback(ctx, events)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "audit kafka circuit closed")
	}
	return nil
}

func (s *KafkaSink) writeFallback(ctx context.Context, events []Event) error {
	if s.fallback == nil {
		return fmt.Errorf("audit kafka circuit %s is open", s.breaker.Name())
	}
	return s.fallback.Write(ctx, events)
}

// Close flushes buffered records and closes the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}

func toRecord(e Event) (*kgo.Record, error) {
	p := kafkaPayload{
		ID:        uuid.NewString(),
		Action:    string(e.Action),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   e.Subject,
		RequestID: e.RequestID,
		Attrs:     e.Attrs,
	}
	var key []byte
	if !e.UserID.IsNil() {
		p.UserID = e.UserID.String()
		key = []byte(p.UserID)
	}
	value, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return &kgo.Record{Key: key, Value: value}, nil
}
