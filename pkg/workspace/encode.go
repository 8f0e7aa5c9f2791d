package workspace

import (
	"encoding/json"
	"fmt"
)

type storedEvent struct {
	Id            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Location      string   `json:"location,omitempty"`
	Guests        string   `json:"guests,omitempty"`
	MeetingLink   string   `json:"meetingLink,omitempty"`
	Date          string   `json:"date"`
	StartTime     string   `json:"startTime,omitempty"`
	EndTime       string   `json:"endTime,omitempty"`
	Priority      string   `json:"priority"`
	Category      string   `json:"category"`
	Color         string   `json:"color,omitempty"`
	Repeat        string   `json:"repeat"`
	CustomDays    []int    `json:"customDays,omitempty"`
	ExcludedDates []string `json:"excludedDates,omitempty"`
}

// EncodeEvent renders an event in the stored record shape read by Decode.
func EncodeEvent(e Event) (json.RawMessage, error) {
	stored := storedEvent{
		Id:          e.Id,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Guests:      e.Guests,
		MeetingLink: e.MeetingLink,
		Date:        e.Date.String(),
		Priority:    string(orDefault(e.Priority, PriorityNormal)),
		Category:    string(orDefault(e.Category, CategoryPersonal)),
		Color:       e.Color,
		Repeat:      string(orDefault(e.Repeat, RepeatNone)),
	}
	if e.StartTime != nil {
		stored.StartTime = e.StartTime.String()
	}
	if e.EndTime != nil {
		stored.EndTime = e.EndTime.String()
	}
	for _, day := range e.CustomDays {
		stored.CustomDays = append(stored.CustomDays, int(day))
	}
	for _, date := range e.ExcludedDates {
		stored.ExcludedDates = append(stored.ExcludedDates, date.String())
	}
	return json.Marshal(stored)
}

// MergeEvents adds events to the snapshot in data, replacing stored events
// with the same id. Every other field of the snapshot is kept as stored.
func MergeEvents(data []byte, events []Event) ([]byte, error) {
	if err := validateObject(orEmpty(data)); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(orEmpty(data), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	stored := make([]json.RawMessage, 0)
	if raw, ok := fields["events"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("%w: events: %v", ErrInvalidSnapshot, err)
		}
	}

	index := make(map[string]int, len(stored))
	for i, item := range stored {
		if id := peekId(item); id != "" {
			index[id] = i
		}
	}
	for _, event := range events {
		encoded, err := EncodeEvent(event)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", event.Id, err)
		}
		if i, ok := index[event.Id]; ok {
			stored[i] = encoded
			continue
		}
		index[event.Id] = len(stored)
		stored = append(stored, encoded)
	}

	encodedEvents, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	fields["events"] = encodedEvents
	return json.Marshal(fields)
}

func orDefault[T ~string](value, fallback T) T {
	if value == "" {
		return fallback
	}
	return value
}

func orEmpty(data []byte) []byte {
	if len(data) == 0 {
		return emptySnapshot
	}
	return data
}
