package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/functions"
	"github.com/coachd-platform/coachd/internal/metrics"
	"github.com/coachd-platform/coachd/internal/provider"
	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

// MaxLoopIterations bounds the tool-calling loop. Exceeding it is the only
// fatal path: the user gets a fixed apology instead of a model reply.
const MaxLoopIterations = 25

const ExhaustedReply = "I'm sorry, I got stuck while working on that. Could you try rephrasing your request?"

// CompletionGateway is the provider surface the loop depends on. It never
// errors; failures arrive as sentinel assistant turns.
type CompletionGateway interface {
	GenerateCompletion(ctx context.Context, model string, turns []provider.Turn, opts provider.Options) provider.Turn
}

// TaskSource is the task surface the loop reads to build its prompt.
type TaskSource interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params tasks.ListTasksParams) ([]*tasks.Task, int64, error)
	ListSubtasksByOwner(ctx context.Context, ownerID uuid.UUID) ([]*tasks.Subtask, error)
}

// ScheduleStore is the schedule surface the loop reads and the marker side
// effects write through.
type ScheduleStore interface {
	GetForDate(ctx context.Context, ownerID uuid.UUID, date string) (*schedule.DailySchedule, []*schedule.ScheduleItem, error)
	ApplyFinal(ctx context.Context, user *users.User, now time.Time, result *schedule.ParseResult) (*schedule.DailySchedule, error)
	ApplyProposed(ctx context.Context, user *users.User, now time.Time, result *schedule.ParseResult) (*schedule.DailySchedule, error)
}

// Orchestrator runs the bounded conversation loop: one inbound user message
// in, zero or more function executions, one reply out.
type Orchestrator struct {
	gateway      CompletionGateway
	registry     *functions.Registry
	history      *HistoryStore
	tasks        TaskSource
	schedule     ScheduleStore
	defaultModel string
	temperature  float64
}

func New(gateway CompletionGateway, registry *functions.Registry, history *HistoryStore,
	tasksSvc TaskSource, scheduleSvc ScheduleStore, defaultModel string, temperature float64) *Orchestrator {
	return &Orchestrator{
		gateway:      gateway,
		registry:     registry,
		history:      history,
		tasks:        tasksSvc,
		schedule:     scheduleSvc,
		defaultModel: defaultModel,
		temperature:  temperature,
	}
}

// HandleUserTurn processes one inbound user message and returns the reply
// text. Loops for different users never share mutable state; everything here
// is per-call.
func (o *Orchestrator) HandleUserTurn(ctx context.Context, user *users.User, text string) (string, error) {
	now := time.Now()

	transcript, taskList, subtasks, err := o.assembleTranscript(ctx, user, now)
	if err != nil {
		return "", err
	}

	userTurn := provider.Turn{Role: provider.RoleUser, Content: text}
	transcript = append(transcript, userTurn)
	if err := o.history.Append(ctx, user.ID, userTurn); err != nil {
		slog.Warn("persisting user turn", "user_id", user.ID, "error", err)
	}

	model := user.PreferredModel
	if model == "" {
		model = o.defaultModel
	}
	opts := provider.Options{
		Temperature: o.temperature,
		JSONMode:    true,
		Functions:   o.registry.Declarations(),
	}

	for iteration := 1; iteration <= MaxLoopIterations; iteration++ {
		reply := o.gateway.GenerateCompletion(ctx, model, transcript, opts)

		message := reply.Content
		call := reply.FunctionCall
		if call == nil {
			interpreted := Interpret(reply.Content)
			message = interpreted.Message
			call = interpreted.FunctionCall
		}

		if call != nil {
			assistantTurn := reply
			assistantTurn.FunctionCall = call
			transcript = append(transcript, assistantTurn)

			payload := o.registry.Execute(ctx, user.ID, call)
			transcript = append(transcript, provider.Turn{
				Role:       provider.RoleFunction,
				Name:       call.Name,
				ToolCallID: reply.ToolCallID,
				Content:    string(payload),
			})
			continue
		}

		o.applyScheduleMarkers(ctx, user, now, message, taskList, subtasks)

		assistantTurn := provider.Turn{Role: provider.RoleAssistant, Content: message}
		if err := o.history.Append(ctx, user.ID, assistantTurn); err != nil {
			slog.Warn("persisting assistant turn", "user_id", user.ID, "error", err)
		}

		metrics.TurnsTotal.WithLabelValues("ok").Inc()
		metrics.LoopIterations.Observe(float64(iteration))
		return message, nil
	}

	slog.Error("loop exhausted iteration cap", "user_id", user.ID)
	metrics.TurnsTotal.WithLabelValues("exhausted").Inc()
	metrics.LoopIterations.Observe(float64(MaxLoopIterations))
	if err := o.history.Append(ctx, user.ID, provider.Turn{Role: provider.RoleAssistant, Content: ExhaustedReply}); err != nil {
		slog.Warn("persisting apology turn", "user_id", user.ID, "error", err)
	}
	return ExhaustedReply, nil
}

// assembleTranscript loads the user's state and history and returns the
// system prompt plus the rolling window.
func (o *Orchestrator) assembleTranscript(ctx context.Context, user *users.User, now time.Time) ([]provider.Turn, []*tasks.Task, []*tasks.Subtask, error) {
	params := tasks.ListTasksParams{Page: 1, PageSize: 100, Status: tasks.StatusActive}
	taskList, _, err := o.tasks.ListByOwner(ctx, user.ID, params)
	if err != nil {
		return nil, nil, nil, err
	}
	subtasks, err := o.tasks.ListSubtasksByOwner(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	localDate := now.In(user.Location()).Format(time.DateOnly)
	sched, items, err := o.schedule.GetForDate(ctx, user.ID, localDate)
	if err != nil {
		return nil, nil, nil, err
	}

	prompt := BuildSystemPrompt(PromptState{
		User:     user,
		Now:      now,
		Tasks:    taskList,
		Subtasks: subtasks,
		Schedule: sched,
		Items:    items,
	})

	transcript := []provider.Turn{{Role: provider.RoleSystem, Content: prompt}}
	history, err := o.history.Recent(ctx, user.ID)
	if err != nil {
		slog.Warn("loading conversation history", "user_id", user.ID, "error", err)
	} else {
		transcript = append(transcript, history...)
	}
	return transcript, taskList, subtasks, nil
}

// applyScheduleMarkers runs the side effects a terminal reply can carry: a
// final-schedule marker confirms the day and creates its notifications, a
// proposed marker rewrites the draft. Side-effect failures are logged, not
// surfaced; the user still gets the reply text.
func (o *Orchestrator) applyScheduleMarkers(ctx context.Context, user *users.User, now time.Time, message string, taskList []*tasks.Task, subtasks []*tasks.Subtask) {
	if result := schedule.Parse(message); result != nil {
		schedule.MatchTasks(result, taskList, subtasks)
		if _, err := o.schedule.ApplyFinal(ctx, user, now, result); err != nil {
			if errors.Is(err, schedule.ErrConfirmed) {
				slog.Warn("final schedule for already-confirmed day", "user_id", user.ID)
			} else {
				slog.Error("applying final schedule", "user_id", user.ID, "error", err)
			}
		}
		return
	}
	if result := schedule.ParseFrom(message, schedule.ProposedScheduleMarker); result != nil {
		schedule.MatchTasks(result, taskList, subtasks)
		if _, err := o.schedule.ApplyProposed(ctx, user, now, result); err != nil && !errors.Is(err, schedule.ErrConfirmed) {
			slog.Error("applying proposed schedule", "user_id", user.ID, "error", err)
		}
	}
}

// ComposeNotification renders the outbound text for a scheduled message as a
// system-initiated turn with a fixed intent. The conversation window is not
// consulted and not modified.
func (o *Orchestrator) ComposeNotification(ctx context.Context, user *users.User, msg *schedule.ScheduledMessage) string {
	transcript := []provider.Turn{
		{Role: provider.RoleSystem, Content: systemPromptHeader},
		{Role: provider.RoleUser, Content: notificationPrompt(msg.Kind, msg.Title)},
	}

	model := user.PreferredModel
	if model == "" {
		model = o.defaultModel
	}
	reply := o.gateway.GenerateCompletion(ctx, model, transcript, provider.Options{
		Temperature: o.temperature,
		JSONMode:    true,
	})

	if reply.Content == provider.Sentinel {
		// Fall back to the stored title so the notification still goes out.
		return fallbackNotification(msg)
	}
	message := Interpret(reply.Content).Message
	if message == "" {
		return fallbackNotification(msg)
	}
	return message
}

func fallbackNotification(msg *schedule.ScheduledMessage) string {
	if msg.Content != "" {
		return msg.Content
	}
	return msg.Title
}
