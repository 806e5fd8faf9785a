package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/resilience"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes every event to a single Kafka topic keyed by
// aggregate id, so events of one order stay in one partition. Publishing goes
// through Caller so an unreachable broker trips the breaker instead of
// stalling every request.
type KafkaNotifier struct {
	Writer MessageWriter
	Caller resilience.Caller
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

// Notify implements Notifier.
func (k KafkaNotifier) Notify(ctx context.Context, ev db.DomainEvent) error {
	if k.Writer == nil {
		return errors.New("events: kafka writer not configured")
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.AggregateID, 10)),
		Value: ev.Payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(ev.Topic)},
			{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
		},
	}
	err := k.Caller.Do(ctx, func(ctx context.Context) error {
		return k.Writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Topic, err)
	}
	return nil
}
