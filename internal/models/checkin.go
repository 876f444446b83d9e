package models

// Checkin is one recorded attendance scan. The event_date and day_of_week
// columns are generated by the schema from the timestamp; the struct
// exposes them as derived accessors so the two derivations can never
// disagree.
type Checkin struct {
	CheckinID int64     `db:"checkin_id" json:"checkin_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	EventType EventType `db:"event_type" json:"event_type"`
	Timestamp Timestamp `db:"timestamp" json:"timestamp"`
}

// EventDate returns the date portion of the scan timestamp.
func (c Checkin) EventDate() Date {
	return c.Timestamp.Date()
}

// DayOfWeek returns the scan's weekday with Monday = 1 and Sunday = 7.
func (c Checkin) DayOfWeek() int {
	return c.EventDate().ISOWeekday()
}

// EventKey identifies the event this check-in belongs to.
func (c Checkin) EventKey() string {
	return c.EventDate().String() + eventKeySeparator + string(c.EventType)
}
