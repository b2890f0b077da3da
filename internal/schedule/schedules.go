package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleRepository persists daily schedules and their ordered items.
type ScheduleRepository interface {
	GetByOwnerDate(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error)
	UpsertDraft(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error)
	ReplaceItems(ctx context.Context, scheduleID uuid.UUID, items []*ScheduleItem) error
	ListItems(ctx context.Context, scheduleID uuid.UUID) ([]*ScheduleItem, error)
	Confirm(ctx context.Context, scheduleID uuid.UUID) error
}

type postgresScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) ScheduleRepository {
	return &postgresScheduleRepository{pool: pool}
}

func (r *postgresScheduleRepository) GetByOwnerDate(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error) {
	query := `
		SELECT id, owner_user_id, date, status, created_at, updated_at
		FROM daily_schedules
		WHERE owner_user_id = $1 AND date = $2`

	sched := &DailySchedule{}
	err := r.pool.QueryRow(ctx, query, ownerID, date).Scan(
		&sched.ID, &sched.OwnerUserID, &sched.Date, &sched.Status,
		&sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting daily schedule: %w", err)
	}
	return sched, nil
}

// UpsertDraft creates the day's schedule if it does not exist and returns the
// current row either way. An existing confirmed row is returned as-is; the
// status never moves backwards here.
func (r *postgresScheduleRepository) UpsertDraft(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error) {
	query := `
		INSERT INTO daily_schedules (id, owner_user_id, date, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'draft', NOW(), NOW())
		ON CONFLICT (owner_user_id, date) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), ownerID, date); err != nil {
		return nil, fmt.Errorf("upserting daily schedule: %w", err)
	}
	return r.GetByOwnerDate(ctx, ownerID, date)
}

func (r *postgresScheduleRepository) ReplaceItems(ctx context.Context, scheduleID uuid.UUID, items []*ScheduleItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM schedule_items WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("clearing schedule items: %w", err)
	}

	query := `
		INSERT INTO schedule_items (id, schedule_id, task_id, subtask_id, title, start_time, end_time, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for position, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.ScheduleID = scheduleID
		item.Position = position
		_, err := tx.Exec(ctx, query,
			item.ID, item.ScheduleID, item.TaskID, item.SubtaskID,
			item.Title, item.StartTime, item.EndTime, item.Position)
		if err != nil {
			return fmt.Errorf("inserting schedule item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE daily_schedules SET updated_at = NOW() WHERE id = $1`, scheduleID); err != nil {
		return fmt.Errorf("touching daily schedule: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *postgresScheduleRepository) ListItems(ctx context.Context, scheduleID uuid.UUID) ([]*ScheduleItem, error) {
	query := `
		SELECT id, schedule_id, task_id, subtask_id, title, start_time, end_time, position
		FROM schedule_items
		WHERE schedule_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("listing schedule items: %w", err)
	}
	defer rows.Close()

	var out []*ScheduleItem
	for rows.Next() {
		item := &ScheduleItem{}
		err := rows.Scan(&item.ID, &item.ScheduleID, &item.TaskID, &item.SubtaskID,
			&item.Title, &item.StartTime, &item.EndTime, &item.Position)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *postgresScheduleRepository) Confirm(ctx context.Context, scheduleID uuid.UUID) error {
	query := `
		UPDATE daily_schedules
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`

	if _, err := r.pool.Exec(ctx, query, scheduleID); err != nil {
		return fmt.Errorf("confirming daily schedule: %w", err)
	}
	return nil
}
