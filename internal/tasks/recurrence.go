package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence kinds. The pattern grammar is closed:
//
//	none
//	daily
//	weekly:<comma-separated ISO day numbers, 1=Mon..7=Sun>
//	monthly:<day-of-month>
//
// Patterns are parsed once at task-write time; invalid patterns are a
// validation error surfaced to the caller, never silently defaulted.
const (
	RecurNone    = "none"
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

type Recurrence struct {
	Kind       string `json:"kind"`
	Weekdays   []int  `json:"weekdays,omitempty"`     // ISO: 1=Mon .. 7=Sun
	DayOfMonth int    `json:"day_of_month,omitempty"` // 1..31
}

// ParseRecurrence parses a pattern string into a Recurrence value.
// The empty string is treated as "none".
func ParseRecurrence(pattern string) (Recurrence, error) {
	pattern = strings.TrimSpace(strings.ToLower(pattern))

	switch {
	case pattern == "" || pattern == RecurNone:
		return Recurrence{Kind: RecurNone}, nil

	case pattern == RecurDaily:
		return Recurrence{Kind: RecurDaily}, nil

	case strings.HasPrefix(pattern, RecurWeekly+":"):
		spec := strings.TrimPrefix(pattern, RecurWeekly+":")
		parts := strings.Split(spec, ",")
		if len(parts) == 0 || spec == "" {
			return Recurrence{}, fmt.Errorf("weekly pattern needs at least one day: %q", pattern)
		}
		seen := make(map[int]bool, len(parts))
		var days []int
		for _, p := range parts {
			d, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || d < 1 || d > 7 {
				return Recurrence{}, fmt.Errorf("weekly pattern day must be 1–7: %q", pattern)
			}
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
		return Recurrence{Kind: RecurWeekly, Weekdays: days}, nil

	case strings.HasPrefix(pattern, RecurMonthly+":"):
		spec := strings.TrimPrefix(pattern, RecurMonthly+":")
		dom, err := strconv.Atoi(strings.TrimSpace(spec))
		if err != nil || dom < 1 || dom > 31 {
			return Recurrence{}, fmt.Errorf("monthly pattern day must be 1–31: %q", pattern)
		}
		return Recurrence{Kind: RecurMonthly, DayOfMonth: dom}, nil

	default:
		return Recurrence{}, fmt.Errorf("unknown recurrence pattern: %q", pattern)
	}
}

// String renders the recurrence back into its pattern form.
func (r Recurrence) String() string {
	switch r.Kind {
	case RecurDaily:
		return RecurDaily
	case RecurWeekly:
		parts := make([]string, len(r.Weekdays))
		for i, d := range r.Weekdays {
			parts[i] = strconv.Itoa(d)
		}
		return RecurWeekly + ":" + strings.Join(parts, ",")
	case RecurMonthly:
		return RecurMonthly + ":" + strconv.Itoa(r.DayOfMonth)
	default:
		return RecurNone
	}
}

// IsNone reports whether the task has no recurrence pattern.
func (r Recurrence) IsNone() bool {
	return r.Kind == "" || r.Kind == RecurNone
}

// OccursOn reports whether the recurrence is active on the given calendar
// date. The date must already be expressed in the owner's timezone.
func (r Recurrence) OccursOn(date time.Time) bool {
	switch r.Kind {
	case RecurDaily:
		return true
	case RecurWeekly:
		day := isoWeekday(date)
		for _, d := range r.Weekdays {
			if d == day {
				return true
			}
		}
		return false
	case RecurMonthly:
		return date.Day() == r.DayOfMonth
	default:
		return false
	}
}

// isoWeekday maps time.Weekday (Sun=0) to ISO numbering (Mon=1..Sun=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ValidateClockTime checks an HH:MM wall-clock string.
func ValidateClockTime(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("scheduled time must be HH:MM (24-hour): %q", s)
	}
	return nil
}
