package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
	"github.com/noah-isme/backend-storefront/internal/events"
)

type recordingNotifier struct {
	seen []db.DomainEvent
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, ev db.DomainEvent) error {
	n.seen = append(n.seen, ev)
	return n.err
}

func TestRecordPersistsWithinTransaction(t *testing.T) {
	store := dbtest.New()
	bus := &events.Bus{Logger: zerolog.Nop()}
	id := db.UUID(uuid.New())

	err := store.WithinTx(context.Background(), func(q db.Querier) error {
		_, err := bus.Record(context.Background(), q, events.TopicOrderCreated, id, events.OrderCreated{OrderID: "o-1", TotalPrice: "10.00"})
		require.NoError(t, err)
		return errors.New("rollback")
	})
	require.Error(t, err)
	require.Empty(t, store.Events())

	ev, err := bus.Record(context.Background(), store, events.TopicOrderCreated, id, events.OrderCreated{OrderID: "o-1", TotalPrice: "10.00"})
	require.NoError(t, err)
	require.Len(t, store.Events(), 1)

	var payload events.OrderCreated
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.Equal(t, "10.00", payload.TotalPrice)
}

func TestRecordValidatesInput(t *testing.T) {
	bus := &events.Bus{}
	store := dbtest.New()
	_, err := bus.Record(context.Background(), store, " ", db.UUID(uuid.New()), nil)
	require.Error(t, err)
	_, err = bus.Record(context.Background(), store, events.TopicOrderCreated, db.UUID(uuid.Nil), nil)
	require.Error(t, err)
	_, err = bus.Record(context.Background(), store, events.TopicOrderCreated, db.UUID(uuid.New()), json.RawMessage(`{"broken"`))
	require.Error(t, err)
}

func TestPublishFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("smtp down")}
	bus := &events.Bus{Notifiers: []events.Notifier{ok, nil, failing}, Logger: zerolog.Nop()}

	err := bus.Publish(context.Background(), db.DomainEvent{Topic: "a"}, db.DomainEvent{Topic: "b"})
	require.ErrorContains(t, err, "smtp down")
	require.Len(t, ok.seen, 2)
	require.Len(t, failing.seen, 2)
}
