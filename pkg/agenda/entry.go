package agenda

import (
	"time"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/occurrence"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusRunning  Status = "running"
	StatusPast     Status = "past"
	// StatusAllDayToday marks an all-day occurrence on today's date. All-day
	// events are never Running.
	StatusAllDayToday Status = "all-day-today"
)

// Entry is an occurrence annotated for display.
type Entry struct {
	occurrence.Occurrence
	AllDay       bool
	Start        time.Time
	End          time.Time
	Status       Status
	PriorityRank int
	Color        string
	// Position is the index of the entry in its sorted list.
	Position int
}

// Annotate derives the display state of occ at now. The occurrence's wall
// clock times are interpreted in now's location.
func Annotate(occ occurrence.Occurrence, now time.Time) Entry {
	loc := now.Location()
	event := occ.Event
	entry := Entry{
		Occurrence:   occ,
		AllDay:       event.IsAllDay(),
		PriorityRank: event.Priority.Rank(),
		Color:        event.EffectiveColor(),
	}

	if entry.AllDay {
		entry.Start = occ.Date.In(loc)
		entry.End = occ.Date.AddDays(1).In(loc)
		switch occ.Date.Compare(utils.DateOf(now)) {
		case -1:
			entry.Status = StatusPast
		case 1:
			entry.Status = StatusUpcoming
		default:
			entry.Status = StatusAllDayToday
		}
		return entry
	}

	entry.Start = occ.Date.At(*event.StartTime, loc)
	entry.End = entry.Start
	if event.EndTime != nil {
		entry.End = occ.Date.At(*event.EndTime, loc)
		if *event.EndTime < *event.StartTime {
			// ends after midnight
			entry.End = occ.Date.AddDays(1).At(*event.EndTime, loc)
		}
	}

	switch {
	case entry.Start.After(now):
		entry.Status = StatusUpcoming
	case event.EndTime != nil && now.Before(entry.End):
		entry.Status = StatusRunning
	default:
		entry.Status = StatusPast
	}
	return entry
}

// AnnotateAll annotates and sorts occurrences.
func AnnotateAll(occurrences []occurrence.Occurrence, now time.Time) []Entry {
	entries := make([]Entry, 0, len(occurrences))
	for _, occ := range occurrences {
		entries = append(entries, Annotate(occ, now))
	}
	SortEntries(entries)
	return entries
}
