package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

var (
	ErrEmptyCalendar = errors.New("empty calendar body")
	ErrMissingStart  = errors.New("missing DTSTART")
)

// Import maps the VEVENTs of an iCalendar document to event definitions.
// Times are converted to wall-clock times in loc. A VEVENT that cannot be
// mapped is logged and skipped.
func Import(body []byte, loc *time.Location) ([]workspace.Event, error) {
	if loc == nil {
		return nil, ErrNoLocation
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCalendar
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not parse calendar: %w", err)
	}

	events := make([]workspace.Event, 0)
	for _, ve := range cal.Events() {
		event, err := mapEvent(ve, loc)
		if err != nil {
			log.Warnf("ics import: skipping VEVENT %q: %v", propertyValue(ve, ical.ComponentPropertyUniqueId), err)
			continue
		}
		events = append(events, event)
	}
	log.Debugf("ics import: mapped %d of %d events", len(events), len(cal.Events()))
	return events, nil
}

func mapEvent(ve *ical.VEvent, loc *time.Location) (workspace.Event, error) {
	uid := propertyValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		uid = uuid.NewString()
	}
	event := workspace.Event{
		Id:          strings.TrimSuffix(uid, uidSuffix),
		Title:       propertyValue(ve, ical.ComponentPropertySummary),
		Description: propertyValue(ve, ical.ComponentPropertyDescription),
		Location:    propertyValue(ve, ical.ComponentPropertyLocation),
		MeetingLink: propertyValue(ve, ical.ComponentPropertyUrl),
		Guests:      propertyValue(ve, propertyGuests),
		Color:       propertyValue(ve, propertyColor),
		Priority:    priorityFromValue(propertyValue(ve, ical.ComponentPropertyPriority)),
		Category:    workspace.ParseCategory(firstCategory(propertyValue(ve, ical.ComponentPropertyCategories))),
		Repeat:      workspace.RepeatNone,
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || strings.TrimSpace(startProp.Value) == "" {
		return workspace.Event{}, ErrMissingStart
	}
	start, allDay, err := parseDateTime(startProp, loc)
	if err != nil {
		return workspace.Event{}, fmt.Errorf("DTSTART: %w", err)
	}
	event.Date = utils.DateOf(start)
	if !allDay {
		startTime := timeOfDay(start)
		event.StartTime = &startTime
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			end, _, err := parseDateTime(endProp, loc)
			if err != nil {
				return workspace.Event{}, fmt.Errorf("DTEND: %w", err)
			}
			if end.After(start) {
				endTime := timeOfDay(end)
				event.EndTime = &endTime
			}
		}
	}

	if rule := propertyValue(ve, ical.ComponentPropertyRrule); rule != "" {
		event.Repeat, event.CustomDays = repeatFromRule(event.Id, rule, event.Date.Weekday())
	}

	for _, prop := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, value := range strings.Split(prop.Value, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			excluded, _, err := parseValue(value, prop.ICalParameters, loc)
			if err != nil {
				log.Warnf("ics import: event %s: ignoring EXDATE %q: %v", event.Id, value, err)
				continue
			}
			event.ExcludedDates = append(event.ExcludedDates, utils.DateOf(excluded))
		}
	}
	return event, nil
}

// repeatFromRule maps an RRULE to a repeat pattern. Weekly rules on days other
// than the anchor weekday become custom patterns. Intervals above one have no
// equivalent and import as one-off events.
func repeatFromRule(id string, rule string, anchor time.Weekday) (workspace.Repeat, []time.Weekday) {
	option, err := rrule.StrToROption(rule)
	if err != nil {
		log.Warnf("ics import: event %s: unparseable RRULE %q: %v", id, rule, err)
		return workspace.RepeatNone, nil
	}
	if option.Interval > 1 {
		log.Warnf("ics import: event %s: RRULE interval %d is not supported, importing as one-off", id, option.Interval)
		return workspace.RepeatNone, nil
	}
	if option.Count > 0 || !option.Until.IsZero() {
		log.Warnf("ics import: event %s: RRULE end is not supported and was dropped", id)
	}

	switch option.Freq {
	case rrule.DAILY:
		return workspace.RepeatDaily, nil
	case rrule.MONTHLY:
		return workspace.RepeatMonthly, nil
	case rrule.WEEKLY:
		days := make([]time.Weekday, 0, len(option.Byweekday))
		for _, wd := range option.Byweekday {
			// rrule numbers weekdays from Monday=0
			days = append(days, time.Weekday((wd.Day()+1)%7))
		}
		if len(days) == 0 || (len(days) == 1 && days[0] == anchor) {
			return workspace.RepeatWeekly, nil
		}
		return workspace.RepeatCustom, days
	default:
		log.Debugf("ics import: event %s: unsupported RRULE frequency %v", id, option.Freq)
		return workspace.RepeatNone, nil
	}
}

func parseDateTime(prop *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	return parseValue(strings.TrimSpace(prop.Value), prop.ICalParameters, loc)
}

// parseValue reads DATE, UTC DATE-TIME, DATE-TIME with TZID and floating
// DATE-TIME values. The result is in loc; floating times are read as loc's
// wall clock. The boolean reports a DATE value.
func parseValue(value string, params map[string][]string, loc *time.Location) (time.Time, bool, error) {
	if isDateValue(value, params) {
		t, err := time.ParseInLocation(dateLayout, value, loc)
		return t, true, err
	}
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		return t.In(loc), false, err
	}
	valueLoc := loc
	if tzids := params["TZID"]; len(tzids) > 0 {
		if tz, err := time.LoadLocation(tzids[0]); err == nil {
			valueLoc = tz
		} else {
			log.Debugf("ics import: unknown TZID %q, reading %s as local time", tzids[0], value)
		}
	}
	t, err := time.ParseInLocation("20060102T150405", value, valueLoc)
	return t.In(loc), false, err
}

func isDateValue(value string, params map[string][]string) bool {
	for _, kind := range params["VALUE"] {
		if strings.EqualFold(kind, "DATE") {
			return true
		}
	}
	return len(value) == len(dateLayout) && !strings.Contains(value, "T")
}

func timeOfDay(t time.Time) utils.TimeOfDay {
	return utils.TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func propertyValue(ve *ical.VEvent, property ical.ComponentProperty) string {
	if prop := ve.GetProperty(property); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func firstCategory(value string) string {
	first, _, _ := strings.Cut(value, ",")
	return first
}
