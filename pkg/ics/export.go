package ics

import (
	"errors"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

const (
	productId = "-//planboard//planboard//EN"
	uidSuffix = "@planboard"

	propertyColor  = ical.ComponentProperty("X-PLANBOARD-COLOR")
	propertyGuests = ical.ComponentProperty("X-PLANBOARD-GUESTS")

	dateLayout = "20060102"
)

var ErrNoLocation = errors.New("location is required")

// rruleDays maps time.Weekday (Sunday=0) to rrule weekdays.
var rruleDays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Export renders event definitions as an iCalendar document. Recurring events
// become one VEVENT with an RRULE and EXDATEs; wall-clock times are read in loc.
func Export(events []workspace.Event, loc *time.Location, stamp time.Time) (string, error) {
	if loc == nil {
		return "", ErrNoLocation
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productId)

	for _, e := range events {
		if e.Date.IsZero() {
			log.Warnf("ics export: skipping event %s without a date", e.Id)
			continue
		}
		ve := cal.AddEvent(e.Id + uidSuffix)
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.MeetingLink != "" {
			ve.SetURL(e.MeetingLink)
		}
		if e.Guests != "" {
			ve.AddProperty(propertyGuests, e.Guests)
		}
		ve.AddProperty(ical.ComponentPropertyPriority, strconv.Itoa(priorityValue(e.Priority)))
		if e.Category != "" {
			ve.AddProperty(ical.ComponentPropertyCategories, string(e.Category))
		}
		if e.Color != "" {
			ve.AddProperty(propertyColor, e.Color)
		}

		setTimes(ve, e, loc)

		rule, ok := recurrenceRule(e)
		if !ok {
			continue
		}
		ve.AddRrule(rule)
		for _, excluded := range e.ExcludedDates {
			if e.IsAllDay() {
				ve.AddProperty(ical.ComponentPropertyExdate, excluded.In(loc).Format(dateLayout),
					&ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
				continue
			}
			ve.AddProperty(ical.ComponentPropertyExdate, excluded.At(*e.StartTime, loc).UTC().Format("20060102T150405Z"))
		}
	}
	return cal.Serialize(), nil
}

func setTimes(ve *ical.VEvent, e workspace.Event, loc *time.Location) {
	if e.IsAllDay() {
		ve.SetAllDayStartAt(e.Date.In(loc))
		ve.SetAllDayEndAt(e.Date.AddDays(1).In(loc))
		return
	}
	start := e.Date.At(*e.StartTime, loc)
	ve.SetStartAt(start)
	if e.EndTime == nil {
		return
	}
	end := e.Date.At(*e.EndTime, loc)
	if *e.EndTime < *e.StartTime {
		end = e.Date.AddDays(1).At(*e.EndTime, loc)
	}
	ve.SetEndAt(end)
}

// recurrenceRule returns the RRULE value for a recurring event. A custom
// pattern without weekdays does not recur.
func recurrenceRule(e workspace.Event) (string, bool) {
	var option rrule.ROption
	switch e.Repeat {
	case workspace.RepeatDaily:
		option.Freq = rrule.DAILY
	case workspace.RepeatWeekly:
		option.Freq = rrule.WEEKLY
	case workspace.RepeatMonthly:
		option.Freq = rrule.MONTHLY
	case workspace.RepeatCustom:
		for _, day := range e.CustomDays {
			if day < time.Sunday || day > time.Saturday {
				log.Warnf("ics export: event %s has invalid custom weekday %d, skipping it", e.Id, day)
				continue
			}
			option.Byweekday = append(option.Byweekday, rruleDays[day])
		}
		if len(option.Byweekday) == 0 {
			return "", false
		}
		option.Freq = rrule.WEEKLY
	default:
		return "", false
	}
	return option.RRuleString(), true
}

// priorityValue maps to the iCalendar PRIORITY scale where 1 is highest.
func priorityValue(p workspace.Priority) int {
	switch p {
	case workspace.PriorityUrgent:
		return 1
	case workspace.PriorityImportant:
		return 5
	default:
		return 9
	}
}

func priorityFromValue(value string) workspace.Priority {
	n, err := strconv.Atoi(value)
	if err != nil {
		return workspace.PriorityNormal
	}
	switch {
	case n >= 1 && n <= 4:
		return workspace.PriorityUrgent
	case n == 5:
		return workspace.PriorityImportant
	default:
		return workspace.PriorityNormal
	}
}
