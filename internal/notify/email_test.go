package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/resilience"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func orderEvent(t *testing.T) db.DomainEvent {
	t.Helper()
	payload, err := json.Marshal(events.OrderCreated{OrderID: "ord-1", Email: "ada@example.com", CurrencyCode: "EUR", TotalPrice: "108.90"})
	require.NoError(t, err)
	return db.DomainEvent{
		ID:         db.UUID(uuid.New()),
		Topic:      events.TopicOrderCreated,
		Payload:    payload,
		OccurredAt: db.Timestamptz(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
}

func TestNotifyEnqueuesNotifiableTopics(t *testing.T) {
	q := &fakeQueue{}
	n := EmailNotifier{Queue: q, Enabled: true}

	require.NoError(t, n.Notify(context.Background(), orderEvent(t)))
	require.NoError(t, n.Notify(context.Background(), db.DomainEvent{ID: db.UUID(uuid.New()), Topic: events.TopicAddressUpdated}))
	require.Len(t, q.tasks, 1)
	require.Equal(t, TaskOrderEmail, q.tasks[0].Type())

	disabled := EmailNotifier{Queue: q}
	require.NoError(t, disabled.Notify(context.Background(), orderEvent(t)))
	require.Len(t, q.tasks, 1)
}

func TestNotifyTreatsDuplicateAsDelivered(t *testing.T) {
	n := EmailNotifier{Queue: &fakeQueue{err: asynq.ErrTaskIDConflict}, Enabled: true}
	require.NoError(t, n.Notify(context.Background(), orderEvent(t)))

	n = EmailNotifier{Queue: &fakeQueue{err: errors.New("redis down")}, Enabled: true}
	require.Error(t, n.Notify(context.Background(), orderEvent(t)))
}

func TestEmailTaskHandlerSendsRenderedMail(t *testing.T) {
	q := &fakeQueue{}
	require.NoError(t, EmailNotifier{Queue: q, Enabled: true}.Notify(context.Background(), orderEvent(t)))

	outbox := &common.InMemoryEmail{}
	h := EmailTaskHandler{Mail: outbox, Logger: zerolog.Nop()}
	require.NoError(t, h.ProcessTask(context.Background(), q.tasks[0]))

	sent := outbox.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "ada@example.com", sent[0].To)
	require.Equal(t, "We received your order", sent[0].Subject)
	require.Contains(t, sent[0].HTML, "108.90 EUR")
}

func TestEmailTaskHandlerSkipsBadPayloads(t *testing.T) {
	h := EmailTaskHandler{Mail: &common.InMemoryEmail{}, Logger: zerolog.Nop()}

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskOrderEmail, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	noRecipient, _ := json.Marshal(EmailTask{Topic: events.TopicOrderCreated, Payload: json.RawMessage(`{"order_id":"x"}`)})
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TaskOrderEmail, noRecipient)))
}

type failingSender struct{ calls int }

func (f *failingSender) Send(string, string, string) error {
	f.calls++
	return errors.New("relay down")
}

func TestEmailTaskHandlerStopsAtOpenBreaker(t *testing.T) {
	q := &fakeQueue{}
	require.NoError(t, EmailNotifier{Queue: q, Enabled: true}.Notify(context.Background(), orderEvent(t)))

	mail := &failingSender{}
	h := EmailTaskHandler{
		Mail:    mail,
		Breaker: resilience.NewBreaker("mail", 1, 0.5, time.Hour, zerolog.Nop()),
		Logger:  zerolog.Nop(),
	}
	require.Error(t, h.ProcessTask(context.Background(), q.tasks[0]))
	err := h.ProcessTask(context.Background(), q.tasks[0])
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 1, mail.calls)
}

func TestRetryDelayGrows(t *testing.T) {
	require.Greater(t, RetryDelay(4, nil, nil), RetryDelay(0, nil, nil))
}
