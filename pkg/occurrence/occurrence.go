package occurrence

import (
	"errors"
	"fmt"
	"slices"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
)

// MaxRangeDays bounds a single InRange query (about ten years).
const MaxRangeDays = 3660

var (
	ErrInvalidRange  = errors.New("occurrence: range end is before range start")
	ErrRangeTooLarge = fmt.Errorf("occurrence: range exceeds %d days", MaxRangeDays)
)

// Occurrence is one dated materialisation of an event definition. It is
// rebuilt on every query and never stored.
type Occurrence struct {
	Event workspace.Event
	Date  utils.Date
}

// Matches reports whether event materialises on date.
func Matches(event workspace.Event, date utils.Date) bool {
	if date.Before(event.Date) || event.IsExcluded(date) {
		return false
	}

	switch event.Repeat {
	case workspace.RepeatDaily:
		return true
	case workspace.RepeatWeekly:
		return date.Weekday() == event.Date.Weekday()
	case workspace.RepeatMonthly:
		// Months without the anchor's day (e.g. the 31st) are skipped, never clamped.
		return date.Day == event.Date.Day
	case workspace.RepeatCustom:
		if len(event.CustomDays) == 0 {
			return date.Equal(event.Date)
		}
		return slices.Contains(event.CustomDays, date.Weekday())
	default:
		return date.Equal(event.Date)
	}
}

// OnDate returns the occurrences of events on date, in input order.
func OnDate(events []workspace.Event, date utils.Date) []Occurrence {
	occurrences := make([]Occurrence, 0)
	for _, event := range events {
		if event.Date.IsZero() {
			log.Debugf("occurrence: event %s has no anchor date, skipping", event.Id)
			continue
		}
		if Matches(event, date) {
			occurrences = append(occurrences, Occurrence{Event: event, Date: date})
		}
	}
	return occurrences
}

// InRange returns the occurrences of every date in [start, end] inclusive,
// ordered by date and then by input order. It is the concatenation of OnDate
// for each day.
func InRange(events []workspace.Event, start, end utils.Date) ([]Occurrence, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	if start.DaysUntil(end) >= MaxRangeDays {
		return nil, ErrRangeTooLarge
	}

	occurrences := make([]Occurrence, 0)
	for day := start; !day.After(end); day = day.AddDays(1) {
		occurrences = append(occurrences, OnDate(events, day)...)
	}
	return occurrences, nil
}

// ByDate groups occurrences by their date, preserving order within each date.
func ByDate(occurrences []Occurrence) map[utils.Date][]Occurrence {
	grouped := make(map[utils.Date][]Occurrence)
	for _, occ := range occurrences {
		grouped[occ.Date] = append(grouped[occ.Date], occ)
	}
	return grouped
}
