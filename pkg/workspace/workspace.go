package workspace

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/planboard/planboard/internal/utils"
)

type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityImportant Priority = "important"
	PriorityUrgent    Priority = "urgent"
)

// Rank orders priorities for sorting: Urgent=0 < Important=1 < Normal=2.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityImportant:
		return 1
	default:
		return 2
	}
}

// ParsePriority is case-insensitive. Unknown values fall back to Normal.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent":
		return PriorityUrgent
	case "important":
		return PriorityImportant
	default:
		return PriorityNormal
	}
}

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryFocus    Category = "focus"
	CategorySocial   Category = "social"
)

var categoryColors = map[Category]string{
	CategoryPersonal: "#3b82f6",
	CategoryWork:     "#ef4444",
	CategoryFocus:    "#8b5cf6",
	CategorySocial:   "#10b981",
}

// ParseCategory is case-insensitive; "holiday" is an alias of Focus. Unknown values fall back to Personal.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work":
		return CategoryWork
	case "focus", "holiday":
		return CategoryFocus
	case "social":
		return CategorySocial
	default:
		return CategoryPersonal
	}
}

// DefaultColor returns the display colour of the category, or the Personal colour when unknown.
func (c Category) DefaultColor() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[CategoryPersonal]
}

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatCustom  Repeat = "custom"
)

// ParseRepeat is case-insensitive. Unknown values are treated as None so that
// a newer client's pattern still shows on its anchor date.
func ParseRepeat(s string) (Repeat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RepeatNone, true
	case "daily":
		return RepeatDaily, true
	case "weekly":
		return RepeatWeekly, true
	case "monthly":
		return RepeatMonthly, true
	case "custom":
		return RepeatCustom, true
	default:
		return RepeatNone, false
	}
}

// Event is a stored event definition. Recurring definitions materialise as
// many occurrences; see package occurrence.
type Event struct {
	Id          string
	Title       string
	Description string
	Location    string
	Guests      string
	MeetingLink string

	// Date is the anchor: the only date of a one-off event, the earliest date of a recurring one.
	Date      utils.Date
	StartTime *utils.TimeOfDay
	EndTime   *utils.TimeOfDay

	Priority Priority
	Category Category
	Color    string

	Repeat        Repeat
	CustomDays    []time.Weekday
	ExcludedDates []utils.Date
}

// IsAllDay reports whether the event has no start time.
func (e Event) IsAllDay() bool {
	return e.StartTime == nil
}

func (e Event) IsRecurring() bool {
	return e.Repeat != RepeatNone && e.Repeat != ""
}

func (e Event) IsExcluded(date utils.Date) bool {
	return slices.Contains(e.ExcludedDates, date)
}

func (e Event) EffectiveColor() string {
	if e.Color != "" {
		return e.Color
	}
	return e.Category.DefaultColor()
}

type Task struct {
	Id            string
	Title         string
	Notes         string
	ReferenceLink string
	StartDate     *utils.Date
	DueDate       *utils.Date
	Priority      Priority
	Completed     bool
}

// RejectedRecord is a stored record that could not be validated. It is kept
// so an editing context can still show it; it never reaches the schedule.
type RejectedRecord struct {
	Collection string
	Index      int
	Id         string
	Raw        json.RawMessage
	Err        error
}

// Snapshot is the decoded workspace. Statuses and UI state are opaque to the core.
type Snapshot struct {
	Events   []Event
	Todos    []Task
	Statuses []json.RawMessage
	Notes    string
	UI       json.RawMessage
	Rejected []RejectedRecord
}

// Document is a stored snapshot as the persistence layer sees it.
type Document struct {
	WorkspaceId string
	Revision    int64
	Data        []byte
	UpdatedAt   time.Time
}

// Preset is a named copy of a snapshot.
type Preset struct {
	Name    string
	SavedAt time.Time
	Data    []byte
}
