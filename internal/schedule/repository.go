package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists scheduled messages. InsertIfAbsent relies on the
// partial unique index over (owner_user_id, task_id, kind, local_date) for
// reminder kinds, so dedup holds across concurrent scheduler ticks.
type Repository interface {
	InsertIfAbsent(ctx context.Context, msg *ScheduledMessage) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduledMessage, error)
	ListDuePending(ctx context.Context, now time.Time, limit int) ([]*ScheduledMessage, error)
	ListUpcomingByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*ScheduledMessage, error)
	HasForDay(ctx context.Context, ownerID uuid.UUID, taskID *uuid.UUID, kind, localDate string) (bool, error)
	Snooze(ctx context.Context, id uuid.UUID, until time.Time) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	CancelPendingForTaskDay(ctx context.Context, ownerID, taskID uuid.UUID, localDate string) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const messageColumns = `id, owner_user_id, task_id, kind, status, scheduled_for, local_date, title, content, metadata, sent_at, created_at, updated_at`

func scanMessage(row pgx.Row) (*ScheduledMessage, error) {
	msg := &ScheduledMessage{}
	err := row.Scan(
		&msg.ID, &msg.OwnerUserID, &msg.TaskID, &msg.Kind, &msg.Status,
		&msg.ScheduledFor, &msg.LocalDate, &msg.Title, &msg.Content,
		&msg.Metadata, &msg.SentAt, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning scheduled message: %w", err)
	}
	return msg, nil
}

// InsertIfAbsent inserts the message and reports whether a row was written.
// A conflict on the per-day uniqueness index is not an error; it means the
// occurrence was already scheduled.
func (r *postgresRepository) InsertIfAbsent(ctx context.Context, msg *ScheduledMessage) (bool, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	query := `
		INSERT INTO scheduled_messages
			(id, owner_user_id, task_id, kind, status, scheduled_for, local_date, title, content, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING`

	result, err := r.pool.Exec(ctx, query,
		msg.ID, msg.OwnerUserID, msg.TaskID, msg.Kind, msg.Status,
		msg.ScheduledFor, msg.LocalDate, msg.Title, msg.Content, msg.Metadata,
		msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting scheduled message: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*ScheduledMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM scheduled_messages WHERE id = $1`
	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresRepository) ListDuePending(ctx context.Context, now time.Time, limit int) ([]*ScheduledMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM scheduled_messages
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("listing due messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (r *postgresRepository) ListUpcomingByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*ScheduledMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM scheduled_messages
		WHERE owner_user_id = $1 AND status = 'pending'
		ORDER BY scheduled_for
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing upcoming messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]*ScheduledMessage, error) {
	var out []*ScheduledMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// HasForDay reports whether any row of the given kind exists for the owner,
// task and local date, regardless of status. Cancelled rows count: a skipped
// occurrence must not be rescheduled by a later tick.
func (r *postgresRepository) HasForDay(ctx context.Context, ownerID uuid.UUID, taskID *uuid.UUID, kind, localDate string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM scheduled_messages
			WHERE owner_user_id = $1
			  AND ($2::uuid IS NULL AND task_id IS NULL OR task_id = $2)
			  AND kind = $3 AND local_date = $4)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, ownerID, taskID, kind, localDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking scheduled message existence: %w", err)
	}
	return exists, nil
}

// Snooze pushes a pending message's dispatch time forward. Sent or
// cancelled messages cannot be snoozed.
func (r *postgresRepository) Snooze(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `
		UPDATE scheduled_messages
		SET scheduled_for = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.pool.Exec(ctx, query, id, until)
	if err != nil {
		return fmt.Errorf("snoozing scheduled message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("scheduled message not pending")
	}
	return nil
}

func (r *postgresRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, id, StatusSent, &at)
}

func (r *postgresRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StatusFailed, nil)
}

func (r *postgresRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StatusCancelled, nil)
}

// transition moves a pending row to a terminal status. Rows already past
// pending are left untouched so a message is never dispatched twice.
func (r *postgresRepository) transition(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	query := `
		UPDATE scheduled_messages
		SET status = $2, sent_at = COALESCE($3, sent_at), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.pool.Exec(ctx, query, id, status, sentAt)
	if err != nil {
		return fmt.Errorf("updating scheduled message status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("scheduled message not pending")
	}
	return nil
}

func (r *postgresRepository) CancelPendingForTaskDay(ctx context.Context, ownerID, taskID uuid.UUID, localDate string) (int64, error) {
	query := `
		UPDATE scheduled_messages
		SET status = 'cancelled', updated_at = NOW()
		WHERE owner_user_id = $1 AND task_id = $2 AND local_date = $3 AND status = 'pending'`

	result, err := r.pool.Exec(ctx, query, ownerID, taskID, localDate)
	if err != nil {
		return 0, fmt.Errorf("cancelling scheduled messages: %w", err)
	}
	return result.RowsAffected(), nil
}
