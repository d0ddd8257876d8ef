package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// Repository stores activity events in the outbox table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an outbox repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends an event to the outbox.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_outbox (id, room, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Room, event.EventType,
		pqtype.NullRawMessage{RawMessage: event.Payload, Valid: len(event.Payload) > 0},
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

// FetchUnsent reads up to limit unsent events inside tx, locking the rows
// so concurrent workers skip them.
func (r *Repository) FetchUnsent(ctx context.Context, tx *sql.Tx, limit int) ([]Event, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, room, event_type, payload, created_at
		FROM activity_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event   Event
			payload pqtype.NullRawMessage
		)
		if err := rows.Scan(&event.ID, &event.Room, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		if payload.Valid {
			event.Payload = payload.RawMessage
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// MarkSent stamps the given events as published inside tx.
func (r *Repository) MarkSent(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE activity_outbox SET sent_at = $1 WHERE id = ANY($2)`,
		sentAt, pq.Array(strIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to mark events sent: %w", err)
	}
	return nil
}
