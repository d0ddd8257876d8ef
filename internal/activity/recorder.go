package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder accepts events from the real-time layer and writes them to
// the outbox off the handler goroutines. It satisfies the gateway's
// Recorder interface; a full buffer drops events rather than blocking
// a broadcast.
type Recorder struct {
	repo   *Repository
	logger *slog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(repo *Repository, logger *slog.Logger) *Recorder {
	r := &Recorder{
		repo:   repo,
		logger: logger,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues one activity event. Never blocks.
func (r *Recorder) Record(room string, eventType string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			r.logger.Warn("failed to marshal activity payload",
				slog.String("event_type", eventType), slog.Any("error", err))
		} else {
			raw = b
		}
	}

	event := Event{
		ID:        uuid.New(),
		Room:      room,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}

	// Lingering WebSocket read pumps can still record during shutdown;
	// once Close has run those events are dropped, never sent.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("recorder closed, dropping event",
			slog.String("event_type", eventType), slog.String("room", room))
		return
	}
	select {
	case r.events <- event:
	default:
		r.logger.Warn("activity buffer full, dropping event",
			slog.String("event_type", eventType), slog.String("room", room))
	}
	r.mu.Unlock()
}

// Close stops the writer after draining queued events. Records arriving
// afterwards are dropped.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.Insert(ctx, event); err != nil {
			r.logger.Error("failed to store activity event",
				slog.String("event_type", event.EventType), slog.Any("error", err))
		}
		cancel()
	}
}
