package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const studentTableSchema = `
CREATE TABLE IF NOT EXISTS students (
    student_id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL,
    grad_year INTEGER NOT NULL,
    deactivated_on TEXT
);`

const uniqueEmailIndexSchema = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_students_email ON students (email);`

const eventTableSchema = `
CREATE TABLE IF NOT EXISTS events (
     event_date TEXT NOT NULL,
    day_of_week INT GENERATED ALWAYS AS (strftime('%u', event_date)) VIRTUAL,
     event_type TEXT NOT NULL,
    description TEXT,
    PRIMARY KEY (event_date, event_type) ON CONFLICT IGNORE
);`

const checkinTableSchema = `
CREATE TABLE IF NOT EXISTS checkins (
       checkin_id INTEGER PRIMARY KEY AUTOINCREMENT,
       student_id TEXT NOT NULL,
       event_date TEXT GENERATED ALWAYS AS (date(timestamp)) VIRTUAL,
      day_of_week INT GENERATED ALWAYS AS (strftime('%u', event_date)) VIRTUAL,
       event_type TEXT,
        timestamp TEXT NOT NULL,
      FOREIGN KEY (student_id) REFERENCES students (student_id),
      FOREIGN KEY (event_date, event_type) REFERENCES events (event_date, event_type)
                  DEFERRABLE INITIALLY DEFERRED,
       CONSTRAINT single_event_constraint UNIQUE (student_id, event_date, event_type)
);`

// The deferred composite foreign key lets a transaction insert a check-in
// and its event row in either order, as long as both exist at commit.

const activeStudentsViewSchema = `
CREATE VIEW IF NOT EXISTS active_students AS
    SELECT student_id, first_name, last_name, grad_year, email, deactivated_on
      FROM students
     WHERE deactivated_on IS NULL;`

// CreateTables creates the attendance schema. It is idempotent: every
// statement uses IF NOT EXISTS, so calling it against a populated store is
// harmless. Tables are created in dependency order (students and events
// before checkins, which references both).
func CreateTables(db *sqlx.DB, enforceUniqueEmail bool) error {
	statements := []string{
		studentTableSchema,
		eventTableSchema,
		checkinTableSchema,
		activeStudentsViewSchema,
	}
	if enforceUniqueEmail {
		statements = append(statements, uniqueEmailIndexSchema)
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
