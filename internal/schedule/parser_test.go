package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachd-platform/coachd/internal/tasks"
)

func TestParseReturnsNilWithoutMarker(t *testing.T) {
	assert.Nil(t, Parse("Here is what I suggest:\n- 9:00 AM: Stand-up"))
	assert.Nil(t, Parse(""))
}

func TestParseScheduleAndNotificationRouting(t *testing.T) {
	text := "The final schedule is as follows:\n" +
		"- 9:30 AM: Draft report (Task ID: 42)\n" +
		"- 10:00 AM: Reminder - check email"

	result := Parse(text)
	require.NotNil(t, result)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Draft report", result.Items[0].Title)
	assert.Equal(t, "09:30", result.Items[0].StartTime)
	assert.Equal(t, "42", result.Items[0].TaskRef)

	require.Len(t, result.Notifications, 1)
	assert.Equal(t, KindReminder, result.Notifications[0].Kind)
	assert.Equal(t, "10:00", result.Notifications[0].StartTime)
}

func TestParseTimeNormalization(t *testing.T) {
	text := "The final schedule is as follows:\n" +
		"- 12:15 AM: Night review\n" +
		"- 12:30 PM: Lunch walk\n" +
		"- 2:00 PM - 3:30 PM: Deep work\n" +
		"- 16:45: Wrap up"

	result := Parse(text)
	require.NotNil(t, result)
	require.Len(t, result.Items, 4)

	assert.Equal(t, "00:15", result.Items[0].StartTime)
	assert.Equal(t, "12:30", result.Items[1].StartTime)
	assert.Equal(t, "14:00", result.Items[2].StartTime)
	assert.Equal(t, "15:30", result.Items[2].EndTime)
	assert.Equal(t, "16:45", result.Items[3].StartTime)
}

func TestParseNotificationsSection(t *testing.T) {
	text := "The final schedule is as follows:\n" +
		"- 9:00 AM: Morning pages\n" +
		"Notifications:\n" +
		"- 11:00 AM: Water break\n" +
		"- 5:00 PM: Follow-up on gym session"

	result := Parse(text)
	require.NotNil(t, result)

	require.Len(t, result.Items, 1)
	require.Len(t, result.Notifications, 2)
	assert.Equal(t, KindReminder, result.Notifications[0].Kind)
	assert.Equal(t, "11:00", result.Notifications[0].StartTime)
	assert.Equal(t, KindFollowUp, result.Notifications[1].Kind)
	assert.Equal(t, "17:00", result.Notifications[1].StartTime)
}

func TestParseSkipsLinesWithoutTimeToken(t *testing.T) {
	text := "The final schedule is as follows:\n" +
		"Here is your day.\n" +
		"- 8:00 AM: Stretch\n" +
		"Have a great one!"

	result := Parse(text)
	require.NotNil(t, result)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Stretch", result.Items[0].Title)
}

func TestMatchTasksPreferenceOrder(t *testing.T) {
	byID := &tasks.Task{ID: uuid.New(), Title: "Write weekly summary"}
	exact := &tasks.Task{ID: uuid.New(), Title: "Draft report"}
	substring := &tasks.Task{ID: uuid.New(), Title: "gym"}
	byTime := &tasks.Task{ID: uuid.New(), Title: "Totally different", ScheduledTime: "07:15"}
	taskList := []*tasks.Task{byID, exact, substring, byTime}

	text := "The final schedule is as follows:\n" +
		"- 9:00 AM: Anything at all (Task ID: " + byID.ID.String() + ")\n" +
		"- 9:30 AM: Draft report\n" +
		"- 10:00 AM: Morning gym session\n" +
		"- 7:15 AM: Mystery block\n" +
		"- 11:00 AM: Unmatched thing"

	result := Parse(text)
	require.NotNil(t, result)
	require.Len(t, result.Items, 5)

	MatchTasks(result, taskList, nil)

	require.NotNil(t, result.Items[0].TaskID)
	assert.Equal(t, byID.ID, *result.Items[0].TaskID)
	require.NotNil(t, result.Items[1].TaskID)
	assert.Equal(t, exact.ID, *result.Items[1].TaskID)
	require.NotNil(t, result.Items[2].TaskID)
	assert.Equal(t, substring.ID, *result.Items[2].TaskID)
	require.NotNil(t, result.Items[3].TaskID)
	assert.Equal(t, byTime.ID, *result.Items[3].TaskID)
	assert.Nil(t, result.Items[4].TaskID)
}

func TestMatchTasksSubtaskReference(t *testing.T) {
	sub := &tasks.Subtask{ID: uuid.New(), TaskID: uuid.New(), Title: "Outline intro"}

	text := "The final schedule is as follows:\n" +
		"- 9:00 AM: Outline intro (Subtask ID: " + sub.ID.String() + ")"

	result := Parse(text)
	require.NotNil(t, result)
	require.Len(t, result.Items, 1)

	MatchTasks(result, nil, []*tasks.Subtask{sub})
	require.NotNil(t, result.Items[0].SubtaskID)
	assert.Equal(t, sub.ID, *result.Items[0].SubtaskID)
	assert.Nil(t, result.Items[0].TaskID)
}
