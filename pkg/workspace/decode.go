package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/planboard/planboard/internal/utils"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidSnapshot = errors.New("snapshot is not a JSON object")
	ErrMissingField    = errors.New("missing required field")
)

type rawEvent struct {
	Id            json.RawMessage `json:"id"`
	Title         looseString     `json:"title"`
	Description   looseString     `json:"description"`
	Location      looseString     `json:"location"`
	Guests        looseString     `json:"guests"`
	MeetingLink   looseString     `json:"meetingLink"`
	Date          string          `json:"date"`
	StartTime     string          `json:"startTime"`
	EndTime       string          `json:"endTime"`
	Priority      looseString     `json:"priority"`
	Category      looseString     `json:"category"`
	Color         looseString     `json:"color"`
	Repeat        looseString     `json:"repeat"`
	CustomDays    json.RawMessage `json:"customDays"`
	ExcludedDates json.RawMessage `json:"excludedDates"`
}

type rawTask struct {
	Id            json.RawMessage `json:"id"`
	Title         looseString     `json:"title"`
	Notes         looseString     `json:"notes"`
	ReferenceLink looseString     `json:"referenceLink"`
	StartDate     string          `json:"startDate"`
	DueDate       string          `json:"dueDate"`
	Priority      looseString     `json:"priority"`
	Completed     bool            `json:"completed"`
}

// looseString decodes a display field. A value that is not a JSON string
// decodes as empty so the field falls back to its default.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		log.Debugf("ignoring non-string value %s", data)
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// Decode validates a stored snapshot. Only a payload that is not a JSON object
// fails as a whole. A record that does not validate is moved to
// Snapshot.Rejected, and a top-level field of the wrong shape is logged and
// left empty; the rest of the workspace decodes normally.
func Decode(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return snapshot, nil
	}
	if trimmed[0] != '{' {
		return Snapshot{}, ErrInvalidSnapshot
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if raw, ok := fields["notes"]; ok {
		if isNullOrString(raw) {
			_ = json.Unmarshal(raw, &snapshot.Notes)
		} else {
			log.Warnf("ignoring snapshot notes: not a string: %s", raw)
		}
	}
	snapshot.UI = fields["ui"]
	snapshot.Statuses = listField(fields, "statuses")

	events := listField(fields, "events")
	snapshot.Events = make([]Event, 0, len(events))
	for i, item := range events {
		event, err := decodeEvent(item)
		if err != nil {
			snapshot.Rejected = append(snapshot.Rejected, reject("events", i, item, err))
			continue
		}
		snapshot.Events = append(snapshot.Events, event)
	}

	todos := listField(fields, "todos")
	snapshot.Todos = make([]Task, 0, len(todos))
	for i, item := range todos {
		task, err := decodeTask(item)
		if err != nil {
			snapshot.Rejected = append(snapshot.Rejected, reject("todos", i, item, err))
			continue
		}
		snapshot.Todos = append(snapshot.Todos, task)
	}

	return snapshot, nil
}

// listField returns the elements of the array stored under name. A missing
// or null field is empty; any other non-array value is logged and ignored.
func listField(fields map[string]json.RawMessage, name string) []json.RawMessage {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	items, ok := asList(raw)
	if !ok {
		log.Warnf("ignoring snapshot %s: not a list: %s", name, raw)
	}
	return items
}

// asList reports false when raw is neither null nor a JSON array.
func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func isNullOrString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return bytes.Equal(raw, []byte("null")) || (len(raw) > 0 && raw[0] == '"')
}

func reject(collection string, index int, item json.RawMessage, err error) RejectedRecord {
	id := peekId(item)
	log.Warnf("skipping %s[%d] (id=%q): %v", collection, index, id, err)
	return RejectedRecord{
		Collection: collection,
		Index:      index,
		Id:         id,
		Raw:        item,
		Err:        err,
	}
}

func peekId(item json.RawMessage) string {
	var peek struct {
		Id json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(item, &peek); err != nil {
		return ""
	}
	return normaliseId(peek.Id)
}

// normaliseId accepts JSON strings and numbers.
func normaliseId(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeEvent(item json.RawMessage) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(item, &raw); err != nil {
		return Event{}, err
	}

	event := Event{
		Id:          normaliseId(raw.Id),
		Title:       string(raw.Title),
		Description: string(raw.Description),
		Location:    string(raw.Location),
		Guests:      string(raw.Guests),
		MeetingLink: string(raw.MeetingLink),
		Priority:    ParsePriority(string(raw.Priority)),
		Category:    ParseCategory(string(raw.Category)),
		Color:       strings.TrimSpace(string(raw.Color)),
	}
	if event.Id == "" {
		return Event{}, fmt.Errorf("%w: id", ErrMissingField)
	}

	date, err := utils.ParseDate(raw.Date)
	if err != nil {
		return Event{}, fmt.Errorf("date: %w", err)
	}
	event.Date = date

	if event.StartTime, err = parseOptionalTime(raw.StartTime); err != nil {
		return Event{}, fmt.Errorf("startTime: %w", err)
	}
	if event.EndTime, err = parseOptionalTime(raw.EndTime); err != nil {
		return Event{}, fmt.Errorf("endTime: %w", err)
	}

	repeat, known := ParseRepeat(string(raw.Repeat))
	if !known {
		log.Debugf("event %s: unsupported repeat %q, treating as one-off", event.Id, raw.Repeat)
	}
	event.Repeat = repeat

	if repeat == RepeatCustom {
		values, _ := asList(raw.CustomDays)
		days, ok := parseWeekdays(values)
		if !ok {
			log.Warnf("event %s: invalid custom weekday set %s, event will not recur", event.Id, raw.CustomDays)
		}
		event.CustomDays = days
	}

	excludedDates, ok := asList(raw.ExcludedDates)
	if !ok {
		log.Warnf("event %s: ignoring excluded dates %s: not a list", event.Id, raw.ExcludedDates)
	}
	for _, value := range excludedDates {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			log.Warnf("event %s: ignoring excluded date %s: not a string", event.Id, value)
			continue
		}
		excluded, err := utils.ParseDate(text)
		if err != nil {
			log.Warnf("event %s: ignoring excluded date: %v", event.Id, err)
			continue
		}
		event.ExcludedDates = append(event.ExcludedDates, excluded)
	}

	return event, nil
}

func decodeTask(item json.RawMessage) (Task, error) {
	var raw rawTask
	if err := json.Unmarshal(item, &raw); err != nil {
		return Task{}, err
	}

	task := Task{
		Id:            normaliseId(raw.Id),
		Title:         string(raw.Title),
		Notes:         string(raw.Notes),
		ReferenceLink: string(raw.ReferenceLink),
		Priority:      ParsePriority(string(raw.Priority)),
		Completed:     raw.Completed,
	}
	if task.Id == "" {
		return Task{}, fmt.Errorf("%w: id", ErrMissingField)
	}
	if strings.TrimSpace(task.Title) == "" {
		return Task{}, fmt.Errorf("%w: title", ErrMissingField)
	}

	var err error
	if task.StartDate, err = parseOptionalDate(raw.StartDate); err != nil {
		return Task{}, fmt.Errorf("startDate: %w", err)
	}
	if task.DueDate, err = parseOptionalDate(raw.DueDate); err != nil {
		return Task{}, fmt.Errorf("dueDate: %w", err)
	}
	return task, nil
}

func parseOptionalTime(s string) (*utils.TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	tod, err := utils.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &tod, nil
}

func parseOptionalDate(s string) (*utils.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseWeekdays returns the de-duplicated weekday set, or nil and false when
// the set is empty or any entry is not a weekday.
func parseWeekdays(values []json.RawMessage) ([]time.Weekday, bool) {
	if len(values) == 0 {
		return nil, false
	}
	seen := make(map[time.Weekday]bool, len(values))
	days := make([]time.Weekday, 0, len(values))
	for _, value := range values {
		day, ok := parseWeekday(value)
		if !ok {
			return nil, false
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, true
}

func parseWeekday(value json.RawMessage) (time.Weekday, bool) {
	var n int
	if err := json.Unmarshal(value, &n); err == nil {
		if n < 0 || n > 6 {
			return 0, false
		}
		return time.Weekday(n), true
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return 0, false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if day, ok := weekdayNames[s]; ok {
		return day, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), true
	}
	return 0, false
}
