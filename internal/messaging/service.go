// Package messaging delivers customer requests to the support inbox.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/obs"
)

var (
	// ErrNoSupportStaff is returned when no account holds the customer-support role.
	ErrNoSupportStaff = errors.New("no customer support staff available")
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrForbidden is returned when the order belongs to another account.
	ErrForbidden = errors.New("order belongs to another account")
	// ErrNotQuote is returned when the order is not a cotizacion.
	ErrNotQuote = errors.New("order is not a quote")
	// ErrNoAccount is returned when the caller is not authenticated.
	ErrNoAccount = errors.New("account required")
)

// Service stores messages between customers and staff.
type Service struct {
	Store  db.Querier
	Events *events.Bus
	Logger *zerolog.Logger
	// Pick chooses the recipient index among n candidates. Defaults to rand.IntN.
	Pick func(n int) int
}

var nopLogger = zerolog.Nop()

func (s *Service) log() *zerolog.Logger {
	if s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}

// RequestQuote asks a randomly chosen support agent to follow up on a quote.
func (s *Service) RequestQuote(ctx context.Context, acct account.Account, orderID int64) (db.Message, error) {
	if s == nil || s.Store == nil {
		return db.Message{}, errors.New("messaging service not configured")
	}
	if acct.ID <= 0 {
		return db.Message{}, ErrNoAccount
	}
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return db.Message{}, ErrOrderNotFound
		}
		return db.Message{}, fmt.Errorf("load order: %w", err)
	}
	if o.AccountID != acct.ID {
		return db.Message{}, ErrForbidden
	}
	if o.Estado != db.EstadoCotizacion {
		return db.Message{}, ErrNotQuote
	}

	staff, err := s.Store.ListAccountsByRole(ctx, db.RoleCustomerSupport)
	if err != nil {
		obs.CountQuoteRequest("error")
		return db.Message{}, fmt.Errorf("list support staff: %w", err)
	}
	if len(staff) == 0 {
		obs.CountQuoteRequest("no_staff")
		s.log().Warn().Int64("order_id", orderID).Msg("quote_request_without_staff")
		return db.Message{}, ErrNoSupportStaff
	}
	pick := s.Pick
	if pick == nil {
		pick = rand.IntN
	}
	recipient := staff[pick(len(staff))]

	msg, err := s.Store.CreateMessage(ctx, db.CreateMessageParams{
		SenderID:    acct.ID,
		RecipientID: recipient.ID,
		Subject:     fmt.Sprintf("Solicitud de cotización #%d", o.ID),
		Body: fmt.Sprintf("El cliente %s solicita revisar la cotización #%d por un total de %s.",
			acct.DisplayName(), o.ID, o.Total.FormatCLP()),
		OrderID: pgtype.Int8{Int64: o.ID, Valid: true},
	})
	if err != nil {
		obs.CountQuoteRequest("error")
		return db.Message{}, fmt.Errorf("create message: %w", err)
	}
	obs.CountQuoteRequest("ok")
	s.log().Info().
		Int64("order_id", o.ID).
		Int64("sender_id", acct.ID).
		Int64("recipient_id", recipient.ID).
		Msg("quote_requested")

	if s.Events != nil {
		payload := map[string]any{
			"messageId":   msg.ID,
			"orderId":     o.ID,
			"senderId":    acct.ID,
			"recipientId": recipient.ID,
			"recipient":   recipient.Email,
		}
		if _, err := s.Events.Emit(ctx, events.TopicQuoteRequested, o.ID, payload); err != nil {
			s.log().Error().Err(err).Int64("order_id", o.ID).Msg("emit_quote_requested")
		}
	}
	return msg, nil
}

// Inbox lists the messages addressed to acct, newest first.
func (s *Service) Inbox(ctx context.Context, acct account.Account) ([]db.Message, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("messaging service not configured")
	}
	if acct.ID <= 0 {
		return nil, ErrNoAccount
	}
	msgs, err := s.Store.ListMessagesByRecipient(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
