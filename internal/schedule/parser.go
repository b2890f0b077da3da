package schedule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/tasks"
)

// Markers the assistant places in replies to signal schedule state. The
// interpreter preserves them verbatim; the parser keys off the final one.
const (
	FinalScheduleMarker    = "The final schedule is as follows:"
	ProposedScheduleMarker = "Here is the proposed schedule for your review:"
)

// ParsedItem is one timed schedule entry extracted from assistant text.
// TaskRef/SubtaskRef hold the raw "(Task ID: ...)" annotation value; TaskID
// and SubtaskID are filled in by MatchTasks when the reference resolves.
type ParsedItem struct {
	Title      string
	StartTime  string // HH:MM, 24-hour
	EndTime    string
	TaskRef    string
	SubtaskRef string
	TaskID     *uuid.UUID
	SubtaskID  *uuid.UUID
}

// ParsedNotification is a timed entry whose title carries notification
// vocabulary and is therefore scheduled as a message, not a schedule item.
type ParsedNotification struct {
	Title     string
	StartTime string
	Kind      string
}

type ParseResult struct {
	Items         []ParsedItem
	Notifications []ParsedNotification
}

var (
	timeTokenRe  = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?(?:\s*[-–]\s*(\d{1,2}):(\d{2})\s*(am|pm)?)?`)
	annotationRe = regexp.MustCompile(`(?i)\((task|subtask)\s+id:\s*([^)]+)\)`)
	bulletRe     = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// Parse extracts schedule and notification items from assistant text. It
// returns nil when the final-schedule marker is absent: without the marker
// the text is conversation, not a confirmed schedule.
func Parse(text string) *ParseResult {
	return ParseFrom(text, FinalScheduleMarker)
}

// ParseFrom parses the schedule lines following the given marker.
func ParseFrom(text, marker string) *ParseResult {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return nil
	}

	result := &ParseResult{}
	inNotifications := false
	for _, line := range strings.Split(text[idx+len(marker):], "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(line, ":"), "notifications") {
			inNotifications = true
			continue
		}

		item, ok := parseLine(line)
		if !ok {
			continue
		}
		if kind, isNotification := notificationKind(item.Title); isNotification || inNotifications {
			if kind == "" {
				kind = KindReminder
			}
			result.Notifications = append(result.Notifications, ParsedNotification{
				Title:     item.Title,
				StartTime: item.StartTime,
				Kind:      kind,
			})
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func parseLine(line string) (ParsedItem, bool) {
	match := timeTokenRe.FindStringSubmatchIndex(line)
	if match == nil {
		return ParsedItem{}, false
	}
	groups := timeTokenRe.FindStringSubmatch(line)

	item := ParsedItem{
		StartTime: normalizeTime(groups[1], groups[2], groups[3]),
	}
	if groups[4] != "" {
		item.EndTime = normalizeTime(groups[4], groups[5], groups[6])
	}

	title := line[:match[0]] + line[match[1]:]
	for _, annotation := range annotationRe.FindAllStringSubmatch(title, -1) {
		ref := strings.TrimSpace(annotation[2])
		if strings.EqualFold(annotation[1], "subtask") {
			item.SubtaskRef = ref
		} else {
			item.TaskRef = ref
		}
	}
	title = annotationRe.ReplaceAllString(title, "")
	item.Title = strings.Trim(strings.TrimSpace(title), ":-– ")
	if item.Title == "" {
		return ParsedItem{}, false
	}
	return item, true
}

// normalizeTime converts a matched clock token to 24-hour HH:MM.
func normalizeTime(hourStr, minuteStr, meridiem string) string {
	var hour, minute int
	fmt.Sscanf(hourStr, "%d", &hour)
	fmt.Sscanf(minuteStr, "%d", &minute)
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// notificationKind routes lines containing reminder, follow-up or check-in
// vocabulary to the notification list and derives the message kind.
func notificationKind(title string) (string, bool) {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "reminder"):
		return KindReminder, true
	case strings.Contains(lower, "follow-up"), strings.Contains(lower, "follow up"):
		return KindFollowUp, true
	case strings.Contains(lower, "check-in"), strings.Contains(lower, "check in"):
		return KindFollowUp, true
	}
	return "", false
}

// MatchTasks resolves parsed items against the user's known tasks and
// subtasks. Preference order: ID annotation, exact title, substring, exact
// scheduled time. Unresolved references stay nil; the caller stores the item
// without a link rather than inserting a dangling foreign key.
func MatchTasks(result *ParseResult, taskList []*tasks.Task, subtasks []*tasks.Subtask) {
	if result == nil {
		return
	}
	for i := range result.Items {
		item := &result.Items[i]
		if item.SubtaskRef != "" {
			if sub := matchSubtask(item.SubtaskRef, item.Title, item.StartTime, subtasks); sub != nil {
				item.SubtaskID = &sub.ID
				continue
			}
		}
		if task := matchTask(item.TaskRef, item.Title, item.StartTime, taskList); task != nil {
			item.TaskID = &task.ID
		}
	}
}

func matchTask(ref, title, startTime string, taskList []*tasks.Task) *tasks.Task {
	if id, err := uuid.Parse(ref); err == nil {
		for _, task := range taskList {
			if task.ID == id {
				return task
			}
		}
	}
	for _, task := range taskList {
		if strings.EqualFold(task.Title, title) {
			return task
		}
	}
	for _, task := range taskList {
		if containsFold(title, task.Title) || containsFold(task.Title, title) {
			return task
		}
	}
	for _, task := range taskList {
		if task.ScheduledTime != "" && task.ScheduledTime == startTime {
			return task
		}
	}
	return nil
}

func matchSubtask(ref, title, startTime string, subtasks []*tasks.Subtask) *tasks.Subtask {
	if id, err := uuid.Parse(ref); err == nil {
		for _, sub := range subtasks {
			if sub.ID == id {
				return sub
			}
		}
	}
	for _, sub := range subtasks {
		if strings.EqualFold(sub.Title, title) {
			return sub
		}
	}
	for _, sub := range subtasks {
		if containsFold(title, sub.Title) || containsFold(sub.Title, title) {
			return sub
		}
	}
	for _, sub := range subtasks {
		if sub.ScheduledTime != "" && sub.ScheduledTime == startTime {
			return sub
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
