// Package activity records room lifecycle events (rounds starting, quizzes
// completing) through an outbox table and publishes them to NATS JetStream
// for dashboards. Delivery is best-effort; losing an event never disturbs
// the real-time layer.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one activity record for the application layer.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Room      string          `json:"room"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// EventPublisher delivers stored events to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
