package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var warsaw = time.FixedZone("CEST", 2*60*60)

var stamp = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func tod(hour, minute int) *utils.TimeOfDay {
	t := utils.NewTimeOfDay(hour, minute)
	return &t
}

func sampleEvents() []workspace.Event {
	return []workspace.Event{
		{
			Id: "standup", Title: "Standup", Date: utils.MustParseDate("2024-06-03"),
			StartTime: tod(9, 0), EndTime: tod(9, 15),
			Priority: workspace.PriorityUrgent, Category: workspace.CategoryWork,
			MeetingLink: "https://meet.example/standup",
			Repeat:      workspace.RepeatCustom, CustomDays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			ExcludedDates: []utils.Date{utils.MustParseDate("2024-06-05")},
		},
		{
			Id: "holiday", Title: "Holiday", Date: utils.MustParseDate("2024-06-10"),
			Priority: workspace.PriorityImportant, Category: workspace.CategoryFocus,
			Repeat:        workspace.RepeatWeekly,
			ExcludedDates: []utils.Date{utils.MustParseDate("2024-06-17")},
			Color:         "#123456",
		},
		{
			Id: "rent", Title: "Rent", Date: utils.MustParseDate("2024-01-31"),
			Priority: workspace.PriorityNormal, Category: workspace.CategoryPersonal,
			Repeat: workspace.RepeatMonthly, Location: "Bank", Guests: "Alex",
		},
		{
			Id: "party", Title: "Party", Date: utils.MustParseDate("2024-06-08"),
			StartTime: tod(22, 0), EndTime: tod(2, 0),
			Priority: workspace.PriorityNormal, Category: workspace.CategorySocial,
			Repeat: workspace.RepeatNone,
		},
	}
}

func TestExport(t *testing.T) {
	// when
	out, err := Export(sampleEvents(), warsaw, stamp)

	// then
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:standup@planboard")
	assert.Contains(t, out, "FREQ=WEEKLY")
	assert.Contains(t, out, "BYDAY=MO,WE,FR")
	assert.Contains(t, out, "FREQ=MONTHLY")
	assert.Contains(t, out, "PRIORITY:1")
	assert.Contains(t, out, "PRIORITY:5")
	assert.Contains(t, out, "PRIORITY:9")
	assert.Contains(t, out, "CATEGORIES:work")
	assert.Contains(t, out, "DTSTART:20240603T070000Z")
	assert.Contains(t, out, "EXDATE:20240605T070000Z")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240610")
	assert.Contains(t, out, "EXDATE;VALUE=DATE:20240617")
	assert.Contains(t, out, "DTEND:20240609T000000Z", "overnight event ends the next day")
}

func TestExport_InvalidCustomWeekdays(t *testing.T) {
	custom := func(days ...time.Weekday) []workspace.Event {
		return []workspace.Event{{
			Id:         "gym",
			Title:      "Gym",
			Date:       utils.MustParseDate("2024-06-03"),
			StartTime:  tod(18, 0),
			Priority:   workspace.PriorityNormal,
			Category:   workspace.CategoryPersonal,
			Repeat:     workspace.RepeatCustom,
			CustomDays: days,
		}}
	}

	t.Run("should skip out of range weekdays", func(t *testing.T) {
		out, err := Export(custom(time.Monday, time.Weekday(9)), warsaw, stamp)

		require.NoError(t, err)
		assert.Contains(t, out, "BYDAY=MO")
		assert.NotContains(t, out, "BYDAY=MO,")
	})

	t.Run("should not recur without a valid weekday", func(t *testing.T) {
		out, err := Export(custom(time.Weekday(9)), warsaw, stamp)

		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
		assert.NotContains(t, out, "RRULE")
	})
}

func TestExport_RequiresLocation(t *testing.T) {
	_, err := Export(sampleEvents(), nil, stamp)

	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestImport_RoundTrip(t *testing.T) {
	// given
	events := sampleEvents()
	out, err := Export(events, warsaw, stamp)
	require.NoError(t, err)

	// when
	imported, err := Import([]byte(out), warsaw)

	// then
	require.NoError(t, err)
	assert.Equal(t, events, imported)
}

func TestImport(t *testing.T) {
	t.Run("should map foreign calendar entries", func(t *testing.T) {
		// given
		body := strings.Join([]string{
			"BEGIN:VCALENDAR",
			"VERSION:2.0",
			"PRODID:-//test//test//EN",
			"BEGIN:VEVENT",
			"UID:tz-event",
			"SUMMARY:Call with Tokyo",
			"DTSTART;TZID=Asia/Tokyo:20240604T170000",
			"DTEND;TZID=Asia/Tokyo:20240604T180000",
			"RRULE:FREQ=WEEKLY;BYDAY=TU",
			"PRIORITY:3",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:floating",
			"SUMMARY:Lunch",
			"DTSTART:20240605T120000",
			"RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
			"CATEGORIES:SOCIAL,FOOD",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:biweekly",
			"SUMMARY:Retro",
			"DTSTART;VALUE=DATE:20240606",
			"RRULE:FREQ=WEEKLY;INTERVAL=2",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:yearly",
			"SUMMARY:Birthday",
			"DTSTART;VALUE=DATE:20240607",
			"RRULE:FREQ=YEARLY",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:no-start",
			"SUMMARY:Broken",
			"END:VEVENT",
			"END:VCALENDAR",
			"",
		}, "\r\n")

		// when
		events, err := Import([]byte(body), warsaw)

		// then
		require.NoError(t, err)
		require.Len(t, events, 4)

		call := events[0]
		assert.Equal(t, "tz-event", call.Id)
		assert.Equal(t, utils.MustParseDate("2024-06-04"), call.Date)
		assert.Equal(t, "10:00", call.StartTime.String())
		assert.Equal(t, "11:00", call.EndTime.String())
		assert.Equal(t, workspace.RepeatWeekly, call.Repeat)
		assert.Equal(t, workspace.PriorityUrgent, call.Priority)

		lunch := events[1]
		assert.Equal(t, "12:00", lunch.StartTime.String())
		assert.Nil(t, lunch.EndTime)
		assert.Equal(t, workspace.RepeatCustom, lunch.Repeat)
		assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, lunch.CustomDays)
		assert.Equal(t, workspace.CategorySocial, lunch.Category)
		assert.Equal(t, workspace.PriorityNormal, lunch.Priority)

		retro := events[2]
		assert.True(t, retro.IsAllDay())
		assert.Equal(t, workspace.RepeatNone, retro.Repeat)

		assert.Equal(t, workspace.RepeatNone, events[3].Repeat)
	})

	t.Run("should reject an empty body", func(t *testing.T) {
		_, err := Import([]byte("  "), warsaw)

		assert.ErrorIs(t, err, ErrEmptyCalendar)
	})
}
