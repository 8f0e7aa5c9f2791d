package agenda

import (
	"cmp"
	"slices"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/occurrence"
	"github.com/planboard/planboard/pkg/workspace"
)

// noTime sorts before every concrete time of day.
const noTime = -1

// CompareOccurrences orders by (timed after all-day, priority rank, start, end).
func CompareOccurrences(a, b occurrence.Occurrence) int {
	return compareEvents(a.Event, b.Event)
}

func compareEvents(a, b workspace.Event) int {
	return cmp.Or(
		cmp.Compare(boolRank(!a.IsAllDay()), boolRank(!b.IsAllDay())),
		cmp.Compare(a.Priority.Rank(), b.Priority.Rank()),
		cmp.Compare(timeKey(a.StartTime), timeKey(b.StartTime)),
		cmp.Compare(endKey(a), endKey(b)),
	)
}

// endKey ignores a stored end time on all-day events.
func endKey(e workspace.Event) int {
	if e.IsAllDay() {
		return noTime
	}
	return timeKey(e.EndTime)
}

// SortOccurrences sorts in place; ties keep their input order.
func SortOccurrences(occurrences []occurrence.Occurrence) {
	slices.SortStableFunc(occurrences, CompareOccurrences)
}

// SortEntries sorts in place and assigns Position.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return CompareOccurrences(a.Occurrence, b.Occurrence)
	})
	for i := range entries {
		entries[i].Position = i
	}
}

func timeKey(t *utils.TimeOfDay) int {
	if t == nil {
		return noTime
	}
	return int(*t)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
