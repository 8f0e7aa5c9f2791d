package occurrence

import (
	"testing"
	"time"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

var d = utils.MustParseDate

func event(id string, anchor string, repeat workspace.Repeat, excluded ...string) workspace.Event {
	e := workspace.Event{
		Id:       id,
		Title:    "Event " + id,
		Date:     d(anchor),
		Repeat:   repeat,
		Priority: workspace.PriorityNormal,
		Category: workspace.CategoryPersonal,
	}
	for _, x := range excluded {
		e.ExcludedDates = append(e.ExcludedDates, d(x))
	}
	return e
}

func dates(occurrences []Occurrence) []string {
	result := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		result = append(result, occ.Date.String())
	}
	return result
}

func TestMatches(t *testing.T) {
	custom := event("c", "2024-06-03", workspace.RepeatCustom)
	custom.CustomDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	emptyCustom := event("ec", "2024-06-03", workspace.RepeatCustom)

	tests := []struct {
		name  string
		event workspace.Event
		date  string
		want  bool
	}{
		{"one-off on anchor", event("1", "2024-06-03", workspace.RepeatNone), "2024-06-03", true},
		{"one-off on another day", event("1", "2024-06-03", workspace.RepeatNone), "2024-06-04", false},
		{"one-off excluded on anchor", event("1", "2024-06-03", workspace.RepeatNone, "2024-06-03"), "2024-06-03", false},
		{"unset repeat behaves as one-off", event("1", "2024-06-03", ""), "2024-06-10", false},
		{"daily before anchor", event("2", "2024-06-03", workspace.RepeatDaily), "2024-06-02", false},
		{"daily on anchor", event("2", "2024-06-03", workspace.RepeatDaily), "2024-06-03", true},
		{"daily far after anchor", event("2", "2024-06-03", workspace.RepeatDaily), "2025-01-01", true},
		{"daily excluded", event("2", "2024-06-03", workspace.RepeatDaily, "2024-06-05"), "2024-06-05", false},
		{"weekly same weekday", event("3", "2024-06-03", workspace.RepeatWeekly), "2024-06-10", true},
		{"weekly other weekday", event("3", "2024-06-03", workspace.RepeatWeekly), "2024-06-11", false},
		{"weekly same weekday before anchor", event("3", "2024-06-03", workspace.RepeatWeekly), "2024-05-27", false},
		{"monthly same day", event("4", "2024-01-15", workspace.RepeatMonthly), "2024-02-15", true},
		{"monthly other day", event("4", "2024-01-15", workspace.RepeatMonthly), "2024-02-16", false},
		{"monthly 31st skips 30-day month end", event("4", "2024-01-31", workspace.RepeatMonthly), "2024-04-30", false},
		{"custom on Tuesday", custom, "2024-06-04", false},
		{"custom on Wednesday", custom, "2024-06-05", true},
		{"custom on Friday next week", custom, "2024-06-14", true},
		{"empty custom set only on anchor", emptyCustom, "2024-06-03", true},
		{"empty custom set never recurs", emptyCustom, "2024-06-10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.event, d(tt.date)))
		})
	}
}

func TestOnDate_KeepsInputOrder(t *testing.T) {
	events := []workspace.Event{
		event("b", "2024-06-01", workspace.RepeatDaily),
		event("a", "2024-06-03", workspace.RepeatNone),
		event("c", "2024-06-04", workspace.RepeatNone),
		{Id: "no-anchor", Repeat: workspace.RepeatDaily},
	}

	occurrences := OnDate(events, d("2024-06-03"))

	require.Len(t, occurrences, 2)
	assert.Equal(t, "b", occurrences[0].Event.Id)
	assert.Equal(t, "a", occurrences[1].Event.Id)
	for _, occ := range occurrences {
		assert.Equal(t, d("2024-06-03"), occ.Date)
	}
}

func TestInRange_WeeklyWithExclusion(t *testing.T) {
	// given
	events := []workspace.Event{event("1", "2024-06-03", workspace.RepeatWeekly, "2024-06-17")}

	// when
	occurrences, err := InRange(events, d("2024-06-01"), d("2024-06-24"))

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-03", "2024-06-10", "2024-06-24"}, dates(occurrences))
}

func TestInRange_MonthlyOnThe31st(t *testing.T) {
	events := []workspace.Event{event("m", "2024-01-31", workspace.RepeatMonthly)}

	occurrences, err := InRange(events, d("2024-01-01"), d("2024-05-31"))

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-31", "2024-03-31", "2024-05-31"}, dates(occurrences))
}

func TestInRange_CustomWeekdays(t *testing.T) {
	custom := event("c", "2024-06-03", workspace.RepeatCustom)
	custom.CustomDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	occurrences, err := InRange([]workspace.Event{custom}, d("2024-06-03"), d("2024-06-09"))

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-03", "2024-06-05", "2024-06-07"}, dates(occurrences))
}

func TestInRange_IsUnionOfOnDate(t *testing.T) {
	custom := event("c", "2024-02-29", workspace.RepeatCustom, "2024-03-06")
	custom.CustomDays = []time.Weekday{time.Tuesday, time.Wednesday}
	events := []workspace.Event{
		event("n", "2024-03-10", workspace.RepeatNone),
		event("d", "2024-03-05", workspace.RepeatDaily, "2024-03-07"),
		event("w", "2024-02-26", workspace.RepeatWeekly),
		event("m", "2024-01-31", workspace.RepeatMonthly),
		custom,
	}
	start, end := d("2024-02-25"), d("2024-04-02")

	occurrences, err := InRange(events, start, end)
	require.NoError(t, err)

	expected := make([]Occurrence, 0)
	for day := start; !day.After(end); day = day.AddDays(1) {
		expected = append(expected, OnDate(events, day)...)
	}
	assert.Equal(t, expected, occurrences)

	again, err := InRange(events, start, end)
	require.NoError(t, err)
	assert.Equal(t, occurrences, again, "repeated resolution must be identical")
}

func TestInRange_Errors(t *testing.T) {
	_, err := InRange(nil, d("2024-06-02"), d("2024-06-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = InRange(nil, d("2000-01-01"), d("2030-01-01"))
	assert.ErrorIs(t, err, ErrRangeTooLarge)

	occurrences, err := InRange(nil, d("2024-06-01"), d("2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestByDate(t *testing.T) {
	events := []workspace.Event{
		event("a", "2024-06-03", workspace.RepeatDaily),
		event("b", "2024-06-04", workspace.RepeatNone),
	}
	occurrences, err := InRange(events, d("2024-06-03"), d("2024-06-04"))
	require.NoError(t, err)

	grouped := ByDate(occurrences)

	require.Len(t, grouped, 2)
	assert.Len(t, grouped[d("2024-06-03")], 1)
	require.Len(t, grouped[d("2024-06-04")], 2)
	assert.Equal(t, "a", grouped[d("2024-06-04")][0].Event.Id)
	assert.Equal(t, "b", grouped[d("2024-06-04")][1].Event.Id)
}

// The resolver must agree with RFC 5545 expansion for the patterns it supports.
func TestInRange_AgreesWithRRule(t *testing.T) {
	custom := event("c", "2024-06-03", workspace.RepeatCustom, "2024-06-12")
	custom.CustomDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	tests := []struct {
		name   string
		event  workspace.Event
		option rrule.ROption
	}{
		{
			name:   "daily",
			event:  event("d", "2024-06-03", workspace.RepeatDaily, "2024-06-08"),
			option: rrule.ROption{Freq: rrule.DAILY},
		},
		{
			name:   "weekly",
			event:  event("w", "2024-06-04", workspace.RepeatWeekly, "2024-07-02"),
			option: rrule.ROption{Freq: rrule.WEEKLY},
		},
		{
			name:   "monthly on the 31st",
			event:  event("m", "2024-01-31", workspace.RepeatMonthly),
			option: rrule.ROption{Freq: rrule.MONTHLY},
		},
		{
			name:   "custom weekdays",
			event:  custom,
			option: rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rrule.MO, rrule.WE, rrule.FR}},
		},
	}

	start, end := d("2024-01-01"), d("2024-12-31")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.option.Dtstart = tt.event.Date.In(time.UTC)
			rule, err := rrule.NewRRule(tt.option)
			require.NoError(t, err)
			set := rrule.Set{}
			set.RRule(rule)
			for _, x := range tt.event.ExcludedDates {
				set.ExDate(x.In(time.UTC))
			}
			want := make([]string, 0)
			for _, instant := range set.Between(start.In(time.UTC), end.In(time.UTC), true) {
				want = append(want, utils.DateOf(instant).String())
			}

			occurrences, err := InRange([]workspace.Event{tt.event}, start, end)

			require.NoError(t, err)
			assert.Equal(t, want, dates(occurrences))
		})
	}
}
