package orchestrator

import (
	"fmt"
	"time"

	"github.com/tidwall/sjson"

	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

const systemPromptHeader = `You are a supportive personal coach. You help the user plan their day, manage tasks and goals, and stay accountable.

Always reply with a single JSON object: {"message": "<text for the user>", "function_call": {"name": "<function>", "arguments": {...}}}. The "function_call" field is optional and at most one call is allowed per reply. When you have nothing to execute, reply with just the message.

When the user asks you to plan their day, first propose a schedule prefixed with "` + schedule.ProposedScheduleMarker + `". Once the user agrees, repeat it prefixed with "` + schedule.FinalScheduleMarker + `", one item per line as "- HH:MM: Title (Task ID: <id>)". Put standalone reminders under a "Notifications:" line.`

// PromptState is the machine-readable context block appended to the system
// prompt, assembled with sjson so task metadata cannot break the JSON.
type PromptState struct {
	User     *users.User
	Now      time.Time
	Tasks    []*tasks.Task
	Subtasks []*tasks.Subtask
	Schedule *schedule.DailySchedule
	Items    []*schedule.ScheduleItem
}

func BuildSystemPrompt(state PromptState) string {
	loc := state.User.Location()
	localNow := state.Now.In(loc)

	doc := "{}"
	doc, _ = sjson.Set(doc, "user.display_name", state.User.DisplayName)
	doc, _ = sjson.Set(doc, "user.timezone", state.User.Timezone)
	doc, _ = sjson.Set(doc, "local_time", localNow.Format("Monday 2006-01-02 15:04"))

	for i, task := range state.Tasks {
		prefix := fmt.Sprintf("tasks.%d", i)
		doc, _ = sjson.Set(doc, prefix+".id", task.ID.String())
		doc, _ = sjson.Set(doc, prefix+".title", task.Title)
		doc, _ = sjson.Set(doc, prefix+".type", task.Type)
		doc, _ = sjson.Set(doc, prefix+".status", task.Status)
		if task.ScheduledTime != "" {
			doc, _ = sjson.Set(doc, prefix+".scheduled_time", task.ScheduledTime)
		}
		if !task.Recurrence.IsNone() {
			doc, _ = sjson.Set(doc, prefix+".recurrence", task.Recurrence.String())
		}
		if task.Deadline != nil {
			doc, _ = sjson.Set(doc, prefix+".deadline", task.Deadline.In(loc).Format(time.RFC3339))
		}
	}
	for i, sub := range state.Subtasks {
		prefix := fmt.Sprintf("subtasks.%d", i)
		doc, _ = sjson.Set(doc, prefix+".id", sub.ID.String())
		doc, _ = sjson.Set(doc, prefix+".task_id", sub.TaskID.String())
		doc, _ = sjson.Set(doc, prefix+".title", sub.Title)
		doc, _ = sjson.Set(doc, prefix+".status", sub.Status)
	}
	if state.Schedule != nil {
		doc, _ = sjson.Set(doc, "todays_schedule.status", state.Schedule.Status)
		for i, item := range state.Items {
			prefix := fmt.Sprintf("todays_schedule.items.%d", i)
			doc, _ = sjson.Set(doc, prefix+".start_time", item.StartTime)
			if item.EndTime != "" {
				doc, _ = sjson.Set(doc, prefix+".end_time", item.EndTime)
			}
			doc, _ = sjson.Set(doc, prefix+".title", item.Title)
		}
	}

	return systemPromptHeader + "\n\nCurrent state:\n" + doc
}

// notificationPrompt is the fixed intent used when the engine itself opens
// the conversation to deliver a scheduled message.
func notificationPrompt(kind, title string) string {
	switch kind {
	case schedule.KindPreReminder:
		return fmt.Sprintf("Compose a short heads-up that %q starts in 15 minutes.", title)
	case schedule.KindReminder:
		return fmt.Sprintf("Compose a short nudge that it is time for %q now.", title)
	case schedule.KindPostReminderFollowUp:
		return fmt.Sprintf("Compose a short check-in asking whether %q got started.", title)
	case schedule.KindFollowUp:
		return fmt.Sprintf("Compose a short follow-up asking how %q went.", title)
	case schedule.KindMorningMessage:
		return "Compose a short good-morning message that invites the user to plan their day."
	default:
		return fmt.Sprintf("Compose a short reminder about %q.", title)
	}
}
