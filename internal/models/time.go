package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout matches the TEXT storage format of event_date columns and
	// the output of the date() SQL function.
	DateLayout = "2006-01-02"
	// TimestampLayout matches the TEXT storage format of the checkins
	// timestamp column. Lexicographic order equals chronological order.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date stored as an ISO TEXT column.
type Date struct {
	time.Time
}

// NewDate truncates t to its date portion.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

// ParseDate parses an ISO yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// ISOWeekday returns the day of week with Monday = 1 and Sunday = 7.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Format(DateLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// MarshalJSON renders the date as an ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON parses an ISO date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp is a date-time stored as an ISO TEXT column.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to second precision, the stored resolution.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.Truncate(time.Second)}
}

// ParseTimestamp accepts the storage layout plus a couple of variants seen
// in older store files.
func ParseTimestamp(s string) (Timestamp, error) {
	layouts := []string{TimestampLayout, "2006-01-02 15:04:05.999999", time.RFC3339, DateLayout}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("parse timestamp %q: unrecognized format", s)
}

func (ts Timestamp) String() string {
	return ts.Format(TimestampLayout)
}

// Date returns the date portion of the timestamp.
func (ts Timestamp) Date() Date {
	return NewDate(ts.Time)
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.Format(TimestampLayout), nil
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts = Timestamp{}
		return nil
	case time.Time:
		*ts = NewTimestamp(v)
		return nil
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	case []byte:
		return ts.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

// MarshalJSON renders the timestamp in the storage layout.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.Format(TimestampLayout) + `"`), nil
}

// UnmarshalJSON parses a timestamp string in any accepted layout.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
