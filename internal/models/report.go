package models

// SeasonTotal is one row of the season/build attendance report: a student
// joined against two independently-windowed check-in counts. Students with
// no check-ins appear with zero counts and a nil LastCheckin.
type SeasonTotal struct {
	StudentID     string     `db:"student_id" json:"student_id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	GradYear      int        `db:"grad_year" json:"grad_year"`
	YearCheckins  int        `db:"year_checkins" json:"year_checkins"`
	BuildCheckins int        `db:"build_checkins" json:"build_checkins"`
	LastCheckin   *Timestamp `db:"last_checkin" json:"last_checkin"`
}

// EventSummary is one row of the per-event attendance report.
type EventSummary struct {
	EventDate    Date      `db:"event_date" json:"event_date"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	EventType    EventType `db:"event_type" json:"event_type"`
	CheckinCount int       `db:"checkin_count" json:"checkin_count"`
	Description  *string   `db:"description" json:"description"`
}

// EventRosterEntry is a student who attended a specific event, with the
// timestamp of their check-in.
type EventRosterEntry struct {
	StudentID string    `db:"student_id" json:"student_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	GradYear  int       `db:"grad_year" json:"grad_year"`
	Email     string    `db:"email" json:"email"`
	Timestamp Timestamp `db:"timestamp" json:"timestamp"`
}
