package functions

import "github.com/coachd-platform/coachd/internal/provider"

// Function declarations handed to the provider. Parameter schemas are plain
// JSON-Schema objects; names match the registry's executable surface.

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var createTaskDeclaration = provider.FunctionDeclaration{
	Name:        "create_task",
	Description: "Create a new task or goal for the user. Recurring tasks need a scheduled time.",
	Parameters: objectSchema(map[string]any{
		"title": map[string]any{"type": "string", "description": "Short task title"},
		"type": map[string]any{
			"type": "string",
			"enum": []string{"one_off", "recurring", "project", "goal"},
		},
		"scheduled_time": map[string]any{
			"type":        "string",
			"description": "Time of day in 24-hour HH:MM, in the user's timezone",
		},
		"recurrence": map[string]any{
			"type":        "string",
			"description": "Recurrence pattern: daily, weekly:1,3,5 (ISO days, 1=Mon), or monthly:15",
		},
		"deadline": map[string]any{
			"type":        "string",
			"description": "Deadline as an RFC 3339 timestamp",
		},
	}, "title"),
}

var updateTaskDeclaration = provider.FunctionDeclaration{
	Name:        "update_task",
	Description: "Update an existing task's title, status, scheduled time, or recurrence.",
	Parameters: objectSchema(map[string]any{
		"task_id": map[string]any{"type": "string"},
		"title":   map[string]any{"type": "string"},
		"status": map[string]any{
			"type": "string",
			"enum": []string{"active", "completed", "archived"},
		},
		"scheduled_time": map[string]any{"type": "string"},
		"recurrence":     map[string]any{"type": "string"},
	}, "task_id"),
}

var deleteTaskDeclaration = provider.FunctionDeclaration{
	Name:        "delete_task",
	Description: "Delete a task and cancel its remaining reminders for today.",
	Parameters: objectSchema(map[string]any{
		"task_id": map[string]any{"type": "string"},
	}, "task_id"),
}

var completeTaskDeclaration = provider.FunctionDeclaration{
	Name:        "complete_task",
	Description: "Mark a task as done for today. One-off tasks are closed; recurring tasks stay active for their next occurrence.",
	Parameters: objectSchema(map[string]any{
		"task_id": map[string]any{"type": "string"},
	}, "task_id"),
}

var skipTaskTodayDeclaration = provider.FunctionDeclaration{
	Name:        "skip_task_today",
	Description: "Skip a task for today only and cancel today's reminders for it.",
	Parameters: objectSchema(map[string]any{
		"task_id": map[string]any{"type": "string"},
	}, "task_id"),
}

var createSubtaskDeclaration = provider.FunctionDeclaration{
	Name:        "create_subtask",
	Description: "Add a subtask to an existing task.",
	Parameters: objectSchema(map[string]any{
		"task_id": map[string]any{"type": "string"},
		"title":   map[string]any{"type": "string"},
		"scheduled_time": map[string]any{
			"type":        "string",
			"description": "Optional time of day in 24-hour HH:MM",
		},
	}, "task_id", "title"),
}

var updateSubtaskDeclaration = provider.FunctionDeclaration{
	Name:        "update_subtask",
	Description: "Update a subtask's title, status, or scheduled time.",
	Parameters: objectSchema(map[string]any{
		"subtask_id": map[string]any{"type": "string"},
		"title":      map[string]any{"type": "string"},
		"status": map[string]any{
			"type": "string",
			"enum": []string{"active", "completed", "archived"},
		},
		"scheduled_time": map[string]any{
			"type":        "string",
			"description": "Time of day in 24-hour HH:MM",
		},
	}, "subtask_id"),
}

var deleteSubtaskDeclaration = provider.FunctionDeclaration{
	Name:        "delete_subtask",
	Description: "Delete a subtask.",
	Parameters: objectSchema(map[string]any{
		"subtask_id": map[string]any{"type": "string"},
	}, "subtask_id"),
}

var getScheduleDeclaration = provider.FunctionDeclaration{
	Name:        "get_schedule",
	Description: "Get the user's daily schedule and its items for a date.",
	Parameters: objectSchema(map[string]any{
		"date": map[string]any{
			"type":        "string",
			"description": "Date as YYYY-MM-DD; defaults to today in the user's timezone",
		},
	}),
}

var cancelReminderDeclaration = provider.FunctionDeclaration{
	Name:        "cancel_reminder",
	Description: "Cancel a pending scheduled reminder.",
	Parameters: objectSchema(map[string]any{
		"reminder_id": map[string]any{"type": "string"},
	}, "reminder_id"),
}

var snoozeReminderDeclaration = provider.FunctionDeclaration{
	Name:        "snooze_reminder",
	Description: "Push a pending reminder forward by a number of minutes.",
	Parameters: objectSchema(map[string]any{
		"reminder_id": map[string]any{"type": "string"},
		"minutes": map[string]any{
			"type":        "integer",
			"description": "Minutes to snooze for, default 15",
		},
	}, "reminder_id"),
}
