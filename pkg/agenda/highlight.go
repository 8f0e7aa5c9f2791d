package agenda

import (
	"cmp"
	"slices"
	"time"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/occurrence"
	"github.com/planboard/planboard/pkg/workspace"
)

// DefaultHighlightDays is the look-ahead of the highlights panel.
const DefaultHighlightDays = 7

type HighlightKind string

const (
	HighlightEvent HighlightKind = "event"
	HighlightTask  HighlightKind = "task"
)

// Highlight is an Urgent or Important item due within the look-ahead window.
// Exactly one of Entry and Task is set.
type Highlight struct {
	Kind     HighlightKind
	Date     utils.Date
	Priority workspace.Priority
	Title    string
	Entry    *Entry
	Task     *TaskEntry
}

// Highlights selects occurrences and tasks whose effective priority is Urgent
// or Important and whose date falls within [today, today+days].
func Highlights(events []workspace.Event, tasks []workspace.Task, now time.Time, days int) ([]Highlight, error) {
	if days < 0 {
		days = DefaultHighlightDays
	}
	today := utils.DateOf(now)
	last := today.AddDays(days)

	occurrences, err := occurrence.InRange(events, today, last)
	if err != nil {
		return nil, err
	}

	highlights := make([]Highlight, 0)
	for _, occ := range occurrences {
		if !isHighlighted(occ.Event.Priority) {
			continue
		}
		entry := Annotate(occ, now)
		highlights = append(highlights, Highlight{
			Kind:     HighlightEvent,
			Date:     occ.Date,
			Priority: occ.Event.Priority,
			Title:    occ.Event.Title,
			Entry:    &entry,
		})
	}

	for _, task := range tasks {
		if task.DueDate == nil || task.DueDate.Before(today) || task.DueDate.After(last) {
			continue
		}
		entry := AnnotateTask(task, today)
		if !isHighlighted(entry.EffectivePriority) {
			continue
		}
		highlights = append(highlights, Highlight{
			Kind:     HighlightTask,
			Date:     *task.DueDate,
			Priority: entry.EffectivePriority,
			Title:    task.Title,
			Task:     &entry,
		})
	}

	slices.SortStableFunc(highlights, func(a, b Highlight) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Priority.Rank(), b.Priority.Rank()),
		)
	})
	return highlights, nil
}

func isHighlighted(p workspace.Priority) bool {
	return p == workspace.PriorityUrgent || p == workspace.PriorityImportant
}
