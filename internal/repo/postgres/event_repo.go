package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/services/analytics"
)

var eventColumns = []string{"user_id", "name", "payload", "occurred_at", "created_at"}

// EventRepo appends analytics events with COPY; one batch is one round trip.
type EventRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool, now: time.Now}
}

func (r *EventRepo) InsertBatch(ctx context.Context, userID *uuid.UUID, events []analytics.Event) error {
	if len(events) == 0 {
		return nil
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	var uid any
	if userID != nil && *userID != uuid.Nil {
		uid = *userID
	}

	received := r.now().UTC()
	rows := make([][]any, 0, len(events))
	for i, event := range events {
		props := event.Props
		if props == nil {
			props = map[string]any{}
		}
		payload, err := json.Marshal(props)
		if err != nil {
			return fmt.Errorf("marshal props of event #%d: %w", i, err)
		}

		occurredAt := event.OccurredAt.UTC()
		if event.OccurredAt.IsZero() {
			occurredAt = received
		}
		rows = append(rows, []any{uid, event.Name, payload, occurredAt, received})
	}

	copied, err := r.pool.CopyFrom(ctx, pgx.Identifier{"events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy events: %w", err)
	}
	if copied != int64(len(rows)) {
		return fmt.Errorf("copy events: wrote %d of %d rows", copied, len(rows))
	}
	return nil
}
