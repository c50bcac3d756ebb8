// Package projector consumes request lifecycle events and maintains the
// redis read models: per-request status and per-seller pending counters.
package projector

import (
	"context"
	"encoding/json"

	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	kafkago "github.com/segmentio/kafka-go"
)

// StatusStore is the read-model sink. Seen marks the event id and reports
// whether it was already processed.
type StatusStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	SetStatus(ctx context.Context, requestID, status string) error
	DropStatus(ctx context.Context, requestID string) error
	AddSellerPending(ctx context.Context, sellerID string, delta int) error
}

type Service struct {
	Store       StatusStore
	ServiceName string
}

// HandleRequestEvent is the consumer handler for the request lifecycle topic.
func (s *Service) HandleRequestEvent(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case market.EventRequestCreated, market.EventRequestApproved, market.EventRequestDeleted:
	default:
		return nil // not ours
	}

	seen, err := s.Store.Seen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[market.RequestEventPayload](env.Payload)
	if err != nil {
		return err
	}

	switch env.EventType {
	case market.EventRequestCreated:
		if err := s.Store.SetStatus(ctx, p.RequestID, string(market.StatusPending)); err != nil {
			return err
		}
		if p.SellerID != "" {
			return s.Store.AddSellerPending(ctx, p.SellerID, 1)
		}
	case market.EventRequestApproved:
		if err := s.Store.SetStatus(ctx, p.RequestID, string(market.StatusApproved)); err != nil {
			return err
		}
		if p.SellerID != "" {
			return s.Store.AddSellerPending(ctx, p.SellerID, -1)
		}
	case market.EventRequestDeleted:
		if err := s.Store.DropStatus(ctx, p.RequestID); err != nil {
			return err
		}
		// only pending requests are counted against the seller
		if p.SellerID != "" && p.Status == string(market.StatusPending) {
			return s.Store.AddSellerPending(ctx, p.SellerID, -1)
		}
	}
	return nil
}

// HandleCheckoutEvent warms the status cache for every request a checkout
// created. The per-request lifecycle events keep the seller counters.
func (s *Service) HandleCheckoutEvent(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != market.EventCartCheckedOut {
		return nil
	}

	seen, err := s.Store.Seen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[market.CartCheckedOutPayload](env.Payload)
	if err != nil {
		return err
	}
	for _, id := range p.RequestIDs {
		if err := s.Store.SetStatus(ctx, id, string(market.StatusPending)); err != nil {
			return err
		}
	}
	return nil
}
