package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oakhill-robotics/attendance/internal/models"
)

// ReportRepository serves the derived cross-table queries behind
// dashboards and exports. All rows are read-only aggregates; nothing here
// mutates the store.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SeasonTotals joins the active roster against two windowed check-in
// counts: scans since the school-year start and since the build-season
// start. Students with zero check-ins still appear, with zero counts and
// no last check-in. The build window is normally nested inside the year
// window, so build_checkins <= year_checkins for every row.
func (r *ReportRepository) SeasonTotals(ctx context.Context, yearStart, buildStart models.Date) ([]models.SeasonTotal, error) {
	const query = `SELECT s.student_id, s.first_name, s.last_name, s.grad_year,
               COUNT(CASE WHEN c.event_date >= ? THEN 1 END) AS year_checkins,
               COUNT(CASE WHEN c.event_date >= ? THEN 1 END) AS build_checkins,
               MAX(c.timestamp) AS last_checkin
          FROM active_students s
     LEFT JOIN checkins c ON c.student_id = s.student_id
      GROUP BY s.student_id, s.first_name, s.last_name, s.grad_year
      ORDER BY s.last_name, s.first_name`
	totals := []models.SeasonTotal{}
	if err := r.db.SelectContext(ctx, &totals, query, yearStart, buildStart); err != nil {
		return nil, fmt.Errorf("season totals: %w", err)
	}
	return totals, nil
}

// EventRoster returns the students who attended one event, with their
// check-in timestamps, ordered by student_id.
func (r *ReportRepository) EventRoster(ctx context.Context, date models.Date, eventType models.EventType) ([]models.EventRosterEntry, error) {
	const query = `SELECT s.student_id, s.first_name, s.last_name, s.grad_year, s.email, c.timestamp
          FROM events e
          JOIN checkins c
            ON c.event_date = e.event_date AND c.event_type = e.event_type
          JOIN students s
            ON s.student_id = c.student_id
         WHERE e.event_date = ? AND e.event_type = ?
      ORDER BY s.student_id`
	roster := []models.EventRosterEntry{}
	if err := r.db.SelectContext(ctx, &roster, query, date, eventType); err != nil {
		return nil, fmt.Errorf("event roster: %w", err)
	}
	return roster, nil
}

// EventSummary returns one row per event with its check-in count, newest
// first. Both sides of the relationship surface: calendar events with zero
// attendance keep a zero-count row, and check-in groups that predate their
// event row (before reconciliation) appear without a description.
func (r *ReportRepository) EventSummary(ctx context.Context) ([]models.EventSummary, error) {
	const query = `WITH event_attendance AS (
            SELECT event_date, COALESCE(event_type, '') AS event_type,
                   COUNT(student_id) AS checkin_count
              FROM checkins
          GROUP BY event_date, COALESCE(event_type, '')
        )
        SELECT e.event_date, e.day_of_week, e.event_type,
               COALESCE(a.checkin_count, 0) AS checkin_count,
               e.description
          FROM events e
     LEFT JOIN event_attendance a
            ON a.event_date = e.event_date AND a.event_type = e.event_type
        UNION ALL
        SELECT a.event_date,
               CAST(strftime('%u', a.event_date) AS INT) AS day_of_week,
               a.event_type, a.checkin_count, NULL AS description
          FROM event_attendance a
         WHERE NOT EXISTS (SELECT 1 FROM events e
                            WHERE e.event_date = a.event_date
                              AND e.event_type = a.event_type)
      ORDER BY event_date DESC, event_type`
	summaries := []models.EventSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("event summary: %w", err)
	}
	return summaries, nil
}
