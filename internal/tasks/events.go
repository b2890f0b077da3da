package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository is the append-only task event log.
type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	ExistsInRange(ctx context.Context, taskID uuid.UUID, kind string, from, to time.Time) (bool, error)
	ListByTask(ctx context.Context, taskID uuid.UUID, from, to time.Time) ([]*Event, error)
}

type postgresEventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &postgresEventRepository{pool: pool}
}

func (r *postgresEventRepository) Append(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO task_events (id, task_id, owner_user_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.TaskID, event.OwnerUserID, event.Kind, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting task event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) ExistsInRange(ctx context.Context, taskID uuid.UUID, kind string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM task_events
			WHERE task_id = $1 AND kind = $2 AND occurred_at >= $3 AND occurred_at < $4)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, taskID, kind, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking task event existence: %w", err)
	}
	return exists, nil
}

func (r *postgresEventRepository) ListByTask(ctx context.Context, taskID uuid.UUID, from, to time.Time) ([]*Event, error) {
	query := `
		SELECT id, task_id, owner_user_id, kind, occurred_at
		FROM task_events
		WHERE task_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at`

	rows, err := r.pool.Query(ctx, query, taskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing task events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(&event.ID, &event.TaskID, &event.OwnerUserID, &event.Kind, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning task event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
