// Package events records domain events alongside the writes that caused them
// and hands them to notifiers once those writes are committed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/db"
)

// EventStore defines the persistence operation required by the bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error)
}

// Notifier reacts to committed events (e.g. email).
type Notifier interface {
	Notify(ctx context.Context, event db.DomainEvent) error
}

// Bus persists domain events and fans them out to notifiers.
type Bus struct {
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// Record stores the event through store, normally the transaction's querier,
// so it commits or rolls back with the change it describes.
func (b *Bus) Record(ctx context.Context, store EventStore, topic string, aggregateID pgtype.UUID, payload any) (db.DomainEvent, error) {
	if store == nil {
		return db.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return db.DomainEvent{}, errors.New("events: topic is required")
	}
	if !aggregateID.Valid {
		return db.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return db.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := store.InsertDomainEvent(ctx, db.InsertDomainEventParams{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
	})
	if err != nil {
		return db.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	return ev, nil
}

// Publish dispatches committed events to every notifier. Notifier failures
// are logged and joined; the events themselves are already durable.
func (b *Bus) Publish(ctx context.Context, evs ...db.DomainEvent) error {
	if b == nil {
		return nil
	}
	var joined error
	for _, ev := range evs {
		for _, notifier := range b.Notifiers {
			if notifier == nil {
				continue
			}
			if err := notifier.Notify(ctx, ev); err != nil {
				b.Logger.Warn().Err(err).Str("topic", ev.Topic).Msg("event notifier failed")
				joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
			}
		}
	}
	return joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case json.RawMessage:
		if len(v) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append([]byte(nil), v...), nil
	default:
		return json.Marshal(v)
	}
}
