package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
)

const eventsSubjectPrefix = "kb.events."

// PublishEvents fans out drained domain events, one message per event, on a
// per-event-name subject so consumers can subscribe selectively.
func (q *Queue) PublishEvents(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.Name, err)
		}

		subject := eventsSubjectPrefix + event.Name
		call := func(_ context.Context) error {
			if err := q.conn.Publish(subject, payload); err != nil {
				return fmt.Errorf("nats publish event: %w", err)
			}
			return nil
		}

		if q.executor != nil {
			err = q.executor.Execute(ctx, "nats.publish_event", call, classifyNATSError)
		} else {
			err = call(ctx)
		}
		if err != nil {
			return wrapTemporaryIfNeeded(err)
		}
	}
	return nil
}
