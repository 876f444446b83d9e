package models

import (
	"fmt"
	"strings"
)

// EventType is the closed set of occasions at which attendance is taken.
// The storage column is TEXT; validation happens at the repository and
// service boundaries.
type EventType string

const (
	EventCompetition  EventType = "competition"
	EventKickoff      EventType = "kickoff"
	EventMeeting      EventType = "meeting"
	EventNone         EventType = "none"
	EventOpportunity  EventType = "opportunity"
	EventOutreach     EventType = "outreach"
	EventVirtual      EventType = "virtual"
	EventVolunteering EventType = "volunteering"
)

// EventTypes lists every valid event type in display order.
func EventTypes() []EventType {
	return []EventType{
		EventCompetition,
		EventKickoff,
		EventMeeting,
		EventNone,
		EventOpportunity,
		EventOutreach,
		EventVirtual,
		EventVolunteering,
	}
}

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	switch t {
	case EventCompetition, EventKickoff, EventMeeting, EventNone,
		EventOpportunity, EventOutreach, EventVirtual, EventVolunteering:
		return true
	}
	return false
}

// ParseEventType validates a raw string into an EventType.
func ParseEventType(raw string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", raw)
	}
	return t, nil
}

// Event is a single occurrence identified by its date and type.
type Event struct {
	EventDate   Date      `db:"event_date" json:"event_date"`
	EventType   EventType `db:"event_type" json:"event_type"`
	Description *string   `db:"description" json:"description"`
}

const eventKeySeparator = "::"

// Key uniquely identifies the event as "{iso-date}::{type}".
func (e Event) Key() string {
	return e.EventDate.String() + eventKeySeparator + string(e.EventType)
}

// DayOfWeek returns the event's weekday with Monday = 1 and Sunday = 7.
func (e Event) DayOfWeek() int {
	return e.EventDate.ISOWeekday()
}

// WeekdayName returns the event's weekday as "Monday", "Tuesday", etc.
func (e Event) WeekdayName() string {
	return e.EventDate.Weekday().String()
}

// ParseEventKey splits an event key back into its date and type.
func ParseEventKey(key string) (Date, EventType, error) {
	parts := strings.SplitN(key, eventKeySeparator, 2)
	if len(parts) != 2 {
		return Date{}, "", fmt.Errorf("malformed event key %q", key)
	}
	date, err := ParseDate(parts[0])
	if err != nil {
		return Date{}, "", err
	}
	eventType, err := ParseEventType(parts[1])
	if err != nil {
		return Date{}, "", err
	}
	return date, eventType, nil
}
