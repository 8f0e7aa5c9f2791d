package agenda

import (
	"time"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/occurrence"
	"github.com/planboard/planboard/pkg/workspace"
)

// DayAgenda is the sorted agenda of a single date.
type DayAgenda struct {
	Date    utils.Date
	Entries []Entry
}

// Day returns the sorted, annotated occurrences of date.
func Day(events []workspace.Event, date utils.Date, now time.Time) DayAgenda {
	return DayAgenda{
		Date:    date,
		Entries: AnnotateAll(occurrence.OnDate(events, date), now),
	}
}

// WeekStart returns the first day of the week containing date. An invalid
// firstDay falls back to Monday.
func WeekStart(date utils.Date, firstDay time.Weekday) utils.Date {
	if firstDay < time.Sunday || firstDay > time.Saturday {
		firstDay = time.Monday
	}
	delta := (int(date.Weekday()) - int(firstDay) + 7) % 7
	return date.AddDays(-delta)
}

// Week returns seven day agendas starting at the week start of date.
func Week(events []workspace.Event, date utils.Date, firstDay time.Weekday, now time.Time) ([]DayAgenda, error) {
	start := WeekStart(date, firstDay)
	end := start.AddDays(6)

	occurrences, err := occurrence.InRange(events, start, end)
	if err != nil {
		return nil, err
	}
	grouped := occurrence.ByDate(occurrences)

	days := make([]DayAgenda, 0, 7)
	for day := start; !day.After(end); day = day.AddDays(1) {
		days = append(days, DayAgenda{
			Date:    day,
			Entries: AnnotateAll(grouped[day], now),
		})
	}
	return days, nil
}
