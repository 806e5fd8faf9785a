package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/resilience"
)

// AccountLookup resolves the email of an account.
type AccountLookup interface {
	GetAccountByID(ctx context.Context, id int64) (db.Account, error)
}

// EventHandler processes event:notify tasks by emailing the account the
// event concerns. Topics set to false in Topics are acknowledged silently.
type EventHandler struct {
	Mail     common.EmailSender
	Accounts AccountLookup
	Caller   resilience.Caller
	Topics   map[string]bool
	Logger   *zerolog.Logger
}

var nopLogger = zerolog.Nop()

func (h EventHandler) log() *zerolog.Logger {
	if h.Logger == nil {
		return &nopLogger
	}
	return h.Logger
}

// ProcessTask implements asynq.Handler.
func (h EventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p EventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		obs.CountEventDelivery("unknown", "invalid")
		return fmt.Errorf("decode event task: %v: %w", err, asynq.SkipRetry)
	}
	if h.Mail == nil {
		obs.CountEventDelivery(p.Topic, "skipped")
		return nil
	}
	if enabled, ok := h.Topics[p.Topic]; ok && !enabled {
		obs.CountEventDelivery(p.Topic, "skipped")
		return nil
	}
	fields := map[string]any{}
	if len(p.Payload) > 0 {
		dec := json.NewDecoder(bytes.NewReader(p.Payload))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			obs.CountEventDelivery(p.Topic, "invalid")
			return fmt.Errorf("decode event payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	to, err := h.recipient(ctx, fields)
	if err != nil {
		obs.CountEventDelivery(p.Topic, "error")
		return err
	}
	if to == "" {
		obs.CountEventDelivery(p.Topic, "no_recipient")
		h.log().Debug().Int64("event_id", p.EventID).Str("topic", p.Topic).Msg("event_without_recipient")
		return nil
	}

	subject := subjectFor(p.Topic, p.AggregateID)
	body := bodyFor(p, fields)
	err = h.Caller.Do(ctx, func(context.Context) error {
		return h.Mail.Send(to, subject, body)
	})
	if err != nil {
		obs.CountEventDelivery(p.Topic, "error")
		h.log().Error().Err(err).Int64("event_id", p.EventID).Str("topic", p.Topic).Msg("event_email_failed")
		return fmt.Errorf("send %s email: %w", p.Topic, err)
	}
	obs.CountEventDelivery(p.Topic, "sent")
	h.log().Info().Int64("event_id", p.EventID).Str("topic", p.Topic).Msg("event_email_sent")
	return nil
}

func (h EventHandler) recipient(ctx context.Context, fields map[string]any) (string, error) {
	if to := stringField(fields, "recipient", "email"); to != "" {
		return to, nil
	}
	id := int64Field(fields, "accountId")
	if id <= 0 || h.Accounts == nil {
		return "", nil
	}
	acct, err := h.Accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load account %d: %w", id, err)
	}
	return acct.Email, nil
}

// NewServeMux routes every task type this package defines.
func NewServeMux(h EventHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeEventNotify, h)
	return mux
}
