package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListTasksParams) ([]*Task, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID, status string) (int64, error)
	ListActiveScheduled(ctx context.Context, ownerID uuid.UUID) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	CreateSubtask(ctx context.Context, sub *Subtask) error
	GetSubtaskByID(ctx context.Context, id uuid.UUID) (*Subtask, error)
	ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*Subtask, error)
	ListSubtasksByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subtask, error)
	UpdateSubtask(ctx context.Context, sub *Subtask) error
	SoftDeleteSubtask(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const taskColumns = `id, owner_user_id, title, type, status, scheduled_time, recurrence, deadline, metadata, created_at, updated_at, deleted_at`

func scanTask(row pgx.Row) (*Task, error) {
	task := &Task{}
	var recurrence string
	err := row.Scan(
		&task.ID, &task.OwnerUserID, &task.Title, &task.Type, &task.Status,
		&task.ScheduledTime, &recurrence, &task.Deadline, &task.Metadata,
		&task.CreatedAt, &task.UpdatedAt, &task.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	// Recurrence was validated at write time; a parse failure here means a
	// hand-edited row, which we treat as no recurrence.
	task.Recurrence, _ = ParseRecurrence(recurrence)
	return task, nil
}

func (r *postgresRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (id, owner_user_id, title, type, status, scheduled_time, recurrence, deadline, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		task.ID, task.OwnerUserID, task.Title, task.Type, task.Status,
		task.ScheduledTime, task.Recurrence.String(), task.Deadline, task.Metadata,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListTasksParams) ([]*Task, error) {
	offset := (params.Page - 1) * params.PageSize

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_user_id = $1 AND deleted_at IS NULL
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, ownerID, params.Status, params.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *postgresRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID, status string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE owner_user_id = $1 AND deleted_at IS NULL AND ($2 = '' OR status = $2)`

	var count int64
	err := r.pool.QueryRow(ctx, query, ownerID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

// ListActiveScheduled returns active tasks that carry a scheduled time,
// the set the reminder scheduler iterates over.
func (r *postgresRepository) ListActiveScheduled(ctx context.Context, ownerID uuid.UUID) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_user_id = $1 AND deleted_at IS NULL
		  AND status = 'active' AND scheduled_time <> ''
		ORDER BY scheduled_time`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*Task, error) {
	var out []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, status = $3, scheduled_time = $4, recurrence = $5, deadline = $6, metadata = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query,
		task.ID, task.Title, task.Status, task.ScheduledTime,
		task.Recurrence.String(), task.Deadline, task.Metadata, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task not found or already deleted")
	}
	return nil
}

func (r *postgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tasks SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft deleting task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task not found or already deleted")
	}
	return nil
}

const subtaskColumns = `id, task_id, owner_user_id, title, status, scheduled_time, created_at, updated_at, deleted_at`

func scanSubtask(row pgx.Row) (*Subtask, error) {
	sub := &Subtask{}
	err := row.Scan(
		&sub.ID, &sub.TaskID, &sub.OwnerUserID, &sub.Title, &sub.Status,
		&sub.ScheduledTime, &sub.CreatedAt, &sub.UpdatedAt, &sub.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning subtask: %w", err)
	}
	return sub, nil
}

func (r *postgresRepository) CreateSubtask(ctx context.Context, sub *Subtask) error {
	query := `
		INSERT INTO subtasks (id, task_id, owner_user_id, title, status, scheduled_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		sub.ID, sub.TaskID, sub.OwnerUserID, sub.Title, sub.Status,
		sub.ScheduledTime, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting subtask: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetSubtaskByID(ctx context.Context, id uuid.UUID) (*Subtask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE id = $1 AND deleted_at IS NULL`
	return scanSubtask(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresRepository) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*Subtask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE task_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	return r.querySubtasks(ctx, query, taskID)
}

func (r *postgresRepository) ListSubtasksByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subtask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE owner_user_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	return r.querySubtasks(ctx, query, ownerID)
}

func (r *postgresRepository) querySubtasks(ctx context.Context, query string, arg any) ([]*Subtask, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing subtasks: %w", err)
	}
	defer rows.Close()

	var out []*Subtask
	for rows.Next() {
		sub, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *postgresRepository) UpdateSubtask(ctx context.Context, sub *Subtask) error {
	query := `
		UPDATE subtasks
		SET title = $2, status = $3, scheduled_time = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query,
		sub.ID, sub.Title, sub.Status, sub.ScheduledTime, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating subtask: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("subtask not found or already deleted")
	}
	return nil
}

func (r *postgresRepository) SoftDeleteSubtask(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE subtasks SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft deleting subtask: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("subtask not found or already deleted")
	}
	return nil
}
