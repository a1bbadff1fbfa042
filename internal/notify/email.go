// Package notify turns committed domain events into customer email. The API
// enqueues an asynq task per event; the worker renders and sends it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/resilience"
)

// TaskOrderEmail is the asynq task type for order notifications.
const TaskOrderEmail = "email:order"

// QueueNotifications is the asynq queue the email tasks go to.
const QueueNotifications = "notifications"

const defaultMaxRetry = 5

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailTask is the task payload.
type EmailTask struct {
	EventID    string          `json:"event_id"`
	Topic      string          `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EmailNotifier implements events.Notifier by enqueueing one task per event.
type EmailNotifier struct {
	Queue    Enqueuer
	Enabled  bool
	MaxRetry int
	// Topics overrides events.NotifiableTopics when non-nil.
	Topics map[string]bool
}

func (n EmailNotifier) wants(topic string) bool {
	if n.Topics != nil {
		return n.Topics[topic]
	}
	for _, t := range events.NotifiableTopics() {
		if t == topic {
			return true
		}
	}
	return false
}

// Notify implements events.Notifier. The event id doubles as the task id so
// a replayed event is enqueued once.
func (n EmailNotifier) Notify(ctx context.Context, ev db.DomainEvent) error {
	if !n.Enabled || n.Queue == nil || !n.wants(ev.Topic) {
		return nil
	}
	eventID := db.UUIDValue(ev.ID).String()
	payload, err := json.Marshal(EmailTask{
		EventID:    eventID,
		Topic:      ev.Topic,
		Payload:    json.RawMessage(ev.Payload),
		OccurredAt: ev.OccurredAt.Time,
	})
	if err != nil {
		return fmt.Errorf("email notify: encode task: %w", err)
	}
	retries := n.MaxRetry
	if retries <= 0 {
		retries = defaultMaxRetry
	}
	task := asynq.NewTask(TaskOrderEmail, payload)
	_, err = n.Queue.EnqueueContext(ctx, task,
		asynq.TaskID(eventID),
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(retries),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EmailTaskHandler renders and sends email tasks in the worker.
type EmailTaskHandler struct {
	Mail common.EmailSender
	// Breaker, when set, stops hammering a failing relay; tasks keep retrying.
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// RetryDelay spaces asynq retries exponentially from a 10s base.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return resilience.Backoff(10*time.Second, n+1, 0.2)
}

// ProcessTask implements asynq.Handler.
func (h EmailTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var task EmailTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	payload := map[string]any{}
	if len(task.Payload) > 0 {
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("decode event payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	logger := h.Logger.With().Str("event_id", task.EventID).Str("topic", task.Topic).Logger()
	to := stringField(payload, "email")
	if to == "" {
		logger.Debug().Msg("email skipped: no recipient")
		return nil
	}
	if h.Mail == nil {
		return errors.New("email sender not configured")
	}
	send := func(context.Context) error {
		return h.Mail.Send(to, subjectFor(task.Topic, payload), bodyFor(task, payload))
	}
	var err error
	if h.Breaker != nil {
		err = h.Breaker.Do(ctx, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("email send failed")
		return err
	}
	return nil
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func subjectFor(topic string, payload map[string]any) string {
	switch topic {
	case events.TopicOrderCreated:
		return "We received your order"
	case events.TopicOrderStatusChanged:
		if to := stringField(payload, "to"); to != "" {
			return "Your order is now " + to
		}
		return "Your order was updated"
	default:
		return "Notification: " + topic
	}
}

func bodyFor(task EmailTask, payload map[string]any) string {
	var b strings.Builder
	b.WriteString("<p>")
	if id := stringField(payload, "order_id"); id != "" {
		fmt.Fprintf(&b, "Order %s", html.EscapeString(id))
	} else {
		b.WriteString("Your order")
	}
	switch task.Topic {
	case events.TopicOrderCreated:
		total := stringField(payload, "total_price")
		currency := stringField(payload, "currency_code")
		fmt.Fprintf(&b, " was placed for %s %s.", html.EscapeString(total), html.EscapeString(currency))
	case events.TopicOrderStatusChanged:
		fmt.Fprintf(&b, " moved from %s to %s.", html.EscapeString(stringField(payload, "from")), html.EscapeString(stringField(payload, "to")))
	default:
		b.WriteString(" has an update.")
	}
	b.WriteString("</p>")
	if !task.OccurredAt.IsZero() {
		fmt.Fprintf(&b, "<p>%s</p>", task.OccurredAt.UTC().Format(time.RFC1123))
	}
	return b.String()
}
