package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

// Deps are the services the coaching functions mutate. NewCoachRegistry
// wires every declared function to its handler; the two surfaces must stay
// in lockstep or the model will call functions that do not exist.
type Deps struct {
	Tasks    *tasks.Service
	Schedule *schedule.Service
	Users    *users.Service
}

type coachFunctions struct {
	deps     Deps
	validate *validator.Validate
}

func NewCoachRegistry(deps Deps) *Registry {
	f := &coachFunctions{deps: deps, validate: validator.New()}

	registry := NewRegistry()
	registry.Register(createTaskDeclaration, f.createTask)
	registry.Register(updateTaskDeclaration, f.updateTask)
	registry.Register(deleteTaskDeclaration, f.deleteTask)
	registry.Register(completeTaskDeclaration, f.completeTask)
	registry.Register(skipTaskTodayDeclaration, f.skipTaskToday)
	registry.Register(createSubtaskDeclaration, f.createSubtask)
	registry.Register(updateSubtaskDeclaration, f.updateSubtask)
	registry.Register(deleteSubtaskDeclaration, f.deleteSubtask)
	registry.Register(getScheduleDeclaration, f.getSchedule)
	registry.Register(cancelReminderDeclaration, f.cancelReminder)
	registry.Register(snoozeReminderDeclaration, f.snoozeReminder)
	return registry
}

func (f *coachFunctions) decode(args json.RawMessage, into any) error {
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := f.validate.Struct(into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type createTaskArgs struct {
	Title         string `json:"title" validate:"required,min=1,max=500"`
	Type          string `json:"type" validate:"omitempty,oneof=one_off recurring project goal"`
	ScheduledTime string `json:"scheduled_time"`
	Recurrence    string `json:"recurrence"`
	Deadline      string `json:"deadline"`
}

func (f *coachFunctions) createTask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a createTaskArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}
	if a.Type == "" {
		a.Type = tasks.TypeOneOff
	}

	req := &tasks.CreateTaskRequest{
		Title:         a.Title,
		Type:          a.Type,
		ScheduledTime: a.ScheduledTime,
		Recurrence:    a.Recurrence,
	}
	if a.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, a.Deadline)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline, expected RFC 3339")
		}
		req.Deadline = &deadline
	}

	task, err := f.deps.Tasks.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "task": task}, nil
}

type updateTaskArgs struct {
	TaskID        string  `json:"task_id" validate:"required,uuid"`
	Title         *string `json:"title"`
	Status        *string `json:"status" validate:"omitempty,oneof=active completed archived"`
	ScheduledTime *string `json:"scheduled_time"`
	Recurrence    *string `json:"recurrence"`
}

func (f *coachFunctions) updateTask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a updateTaskArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	task, err := f.ownedTask(ctx, userID, a.TaskID)
	if err != nil {
		return nil, err
	}

	updated, err := f.deps.Tasks.Update(ctx, task, &tasks.UpdateTaskRequest{
		Title:         a.Title,
		Status:        a.Status,
		ScheduledTime: a.ScheduledTime,
		Recurrence:    a.Recurrence,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "task": updated}, nil
}

type taskIDArgs struct {
	TaskID string `json:"task_id" validate:"required,uuid"`
}

func (f *coachFunctions) deleteTask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a taskIDArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	task, err := f.ownedTask(ctx, userID, a.TaskID)
	if err != nil {
		return nil, err
	}
	if err := f.deps.Tasks.Delete(ctx, task.ID); err != nil {
		return nil, err
	}
	f.cancelTodaysReminders(ctx, userID, task.ID)
	return map[string]string{"status": "deleted"}, nil
}

func (f *coachFunctions) completeTask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a taskIDArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	task, err := f.ownedTask(ctx, userID, a.TaskID)
	if err != nil {
		return nil, err
	}
	if err := f.deps.Tasks.Complete(ctx, task); err != nil {
		return nil, err
	}
	f.cancelTodaysReminders(ctx, userID, task.ID)
	return map[string]string{"status": "completed", "title": task.Title}, nil
}

func (f *coachFunctions) skipTaskToday(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a taskIDArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	task, err := f.ownedTask(ctx, userID, a.TaskID)
	if err != nil {
		return nil, err
	}
	if err := f.deps.Tasks.SkipToday(ctx, task); err != nil {
		return nil, err
	}
	f.cancelTodaysReminders(ctx, userID, task.ID)
	return map[string]string{"status": "skipped", "title": task.Title}, nil
}

type createSubtaskArgs struct {
	TaskID        string `json:"task_id" validate:"required,uuid"`
	Title         string `json:"title" validate:"required,min=1,max=500"`
	ScheduledTime string `json:"scheduled_time"`
}

func (f *coachFunctions) createSubtask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a createSubtaskArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	task, err := f.ownedTask(ctx, userID, a.TaskID)
	if err != nil {
		return nil, err
	}
	sub, err := f.deps.Tasks.CreateSubtask(ctx, task, a.Title, a.ScheduledTime)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "subtask": sub}, nil
}

type updateSubtaskArgs struct {
	SubtaskID     string  `json:"subtask_id" validate:"required,uuid"`
	Title         *string `json:"title" validate:"omitempty,min=1,max=500"`
	Status        *string `json:"status" validate:"omitempty,oneof=active completed archived"`
	ScheduledTime *string `json:"scheduled_time"`
}

func (f *coachFunctions) updateSubtask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a updateSubtaskArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	sub, err := f.deps.Tasks.GetOwnedSubtask(ctx, userID, uuid.MustParse(a.SubtaskID))
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("subtask not found")
	}
	if a.Title != nil {
		sub.Title = *a.Title
	}
	if a.Status != nil {
		sub.Status = *a.Status
	}
	if a.ScheduledTime != nil {
		if *a.ScheduledTime != "" {
			if err := tasks.ValidateClockTime(*a.ScheduledTime); err != nil {
				return nil, err
			}
		}
		sub.ScheduledTime = *a.ScheduledTime
	}
	if err := f.deps.Tasks.UpdateSubtask(ctx, sub); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "subtask": sub}, nil
}

type subtaskIDArgs struct {
	SubtaskID string `json:"subtask_id" validate:"required,uuid"`
}

func (f *coachFunctions) deleteSubtask(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a subtaskIDArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	sub, err := f.deps.Tasks.GetOwnedSubtask(ctx, userID, uuid.MustParse(a.SubtaskID))
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("subtask not found")
	}
	if err := f.deps.Tasks.DeleteSubtask(ctx, sub.ID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "deleted"}, nil
}

type getScheduleArgs struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (f *coachFunctions) getSchedule(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a getScheduleArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}

	date := a.Date
	if date == "" {
		user, err := f.deps.Users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("user not found")
		}
		date = time.Now().In(user.Location()).Format(time.DateOnly)
	}

	sched, items, err := f.deps.Schedule.GetForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return map[string]any{"date": date, "schedule": nil, "items": []any{}}, nil
	}
	return map[string]any{"date": date, "schedule": sched, "items": items}, nil
}

type reminderIDArgs struct {
	ReminderID string `json:"reminder_id" validate:"required,uuid"`
}

func (f *coachFunctions) cancelReminder(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a reminderIDArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}
	if err := f.deps.Schedule.CancelMessage(ctx, userID, uuid.MustParse(a.ReminderID)); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancelled"}, nil
}

type snoozeReminderArgs struct {
	ReminderID string `json:"reminder_id" validate:"required,uuid"`
	Minutes    int    `json:"minutes" validate:"omitempty,min=1,max=1440"`
}

func (f *coachFunctions) snoozeReminder(ctx context.Context, userID uuid.UUID, args json.RawMessage) (any, error) {
	var a snoozeReminderArgs
	if err := f.decode(args, &a); err != nil {
		return nil, err
	}
	if a.Minutes == 0 {
		a.Minutes = 15
	}

	until := time.Now().Add(time.Duration(a.Minutes) * time.Minute)
	if err := f.deps.Schedule.SnoozeMessage(ctx, userID, uuid.MustParse(a.ReminderID), until); err != nil {
		return nil, err
	}
	return map[string]any{"status": "snoozed", "until": until.Format(time.RFC3339)}, nil
}

func (f *coachFunctions) ownedTask(ctx context.Context, userID uuid.UUID, rawID string) (*tasks.Task, error) {
	task, err := f.deps.Tasks.GetOwned(ctx, userID, uuid.MustParse(rawID))
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task not found")
	}
	return task, nil
}

// cancelTodaysReminders drops the task's remaining reminders for the owner's
// current local day. A failure here only means the reminders fire anyway.
func (f *coachFunctions) cancelTodaysReminders(ctx context.Context, userID, taskID uuid.UUID) {
	user, err := f.deps.Users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	localDate := time.Now().In(user.Location()).Format(time.DateOnly)
	if _, err := f.deps.Schedule.CancelForTaskDay(ctx, userID, taskID, localDate); err != nil {
		slog.Warn("cancelling reminders after task change", "task_id", taskID, "error", err)
	}
}
