// Package tasks moves domain event side effects (customer and staff emails)
// out of the request path onto asynq workers.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/ecofor-market/internal/db"
)

// TypeEventNotify is the asynq task type carrying a domain event.
const TypeEventNotify = "event:notify"

// DefaultQueue is the asynq queue used for notifications.
const DefaultQueue = "notifications"

// EventPayload is the task body.
type EventPayload struct {
	EventID     int64           `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID int64           `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewEventNotifyTask wraps ev in a task.
func NewEventNotifyTask(ev db.DomainEvent) (*asynq.Task, error) {
	body, err := json.Marshal(EventPayload{
		EventID:     ev.ID,
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Payload:     json.RawMessage(ev.Payload),
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event task: %w", err)
	}
	return asynq.NewTask(TypeEventNotify, body), nil
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues one notify task per domain event. Task ids are derived
// from the event id so a retried Emit never sends twice.
type Scheduler struct {
	Client    TaskEnqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// Schedule implements events.DeliveryScheduler.
func (s Scheduler) Schedule(ctx context.Context, ev db.DomainEvent) error {
	if s.Client == nil {
		return nil
	}
	task, err := NewEventNotifyTask(ev)
	if err != nil {
		return err
	}
	queue := s.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	opts := []asynq.Option{
		asynq.Queue(queue),
		asynq.TaskID("event-" + strconv.FormatInt(ev.ID, 10)),
	}
	if s.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(s.MaxRetry))
	}
	if s.Retention > 0 {
		opts = append(opts, asynq.Retention(s.Retention))
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeEventNotify, err)
	}
	return nil
}
