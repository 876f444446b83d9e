package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

// CheckinRepository records and queries attendance scans. The schema-level
// UNIQUE constraint on (student_id, event_date, event_type) is the
// correctness mechanism against double check-ins; this repository only
// translates the violation into a Duplicate domain error.
type CheckinRepository struct {
	db *sqlx.DB
}

// NewCheckinRepository constructs a CheckinRepository.
func NewCheckinRepository(db *sqlx.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// HasCheckedInToday reports whether the student has any check-in recorded
// since the start of now's day. This is the cross-event same-day guard;
// the per-event guard is the uniqueness constraint itself.
func (r *CheckinRepository) HasCheckedInToday(ctx context.Context, studentID string, now time.Time) (bool, error) {
	dayStart := models.NewTimestamp(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
	const query = `SELECT 1 FROM checkins WHERE student_id = ? AND timestamp >= ? LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, dayStart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check today's attendance: %w", err)
	}
	return true, nil
}

// Add records a check-in at the given timestamp. An empty event type
// defaults to meeting. The matching event row is created (insert-or-
// ignore) in the same transaction, so the deferred foreign key to events
// always commits clean. A second check-in for the same student, date and
// type reports Duplicate; a scan for an unregistered student reports
// NotFound.
func (r *CheckinRepository) Add(ctx context.Context, studentID string, ts models.Timestamp, eventType models.EventType) (models.Timestamp, error) {
	if eventType == "" {
		eventType = models.EventMeeting
	}
	if !eventType.Valid() {
		return models.Timestamp{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", eventType))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("add checkin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Conflict-ignore on the events primary key: a no-op when the event is
	// already on the calendar.
	const eventQuery = `INSERT INTO events (event_date, event_type) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, eventQuery, ts.Date(), eventType); err != nil {
		return models.Timestamp{}, fmt.Errorf("ensure event: %w", err)
	}

	const checkinQuery = `INSERT INTO checkins (student_id, event_type, timestamp) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, checkinQuery, studentID, eventType, ts); err != nil {
		if isUniqueViolation(err) {
			return models.Timestamp{}, appErrors.Wrap(err, appErrors.KindDuplicate, "student already checked in for this event")
		}
		if isForeignKeyViolation(err) {
			return models.Timestamp{}, appErrors.Wrap(err, appErrors.KindNotFound, "student does not exist")
		}
		return models.Timestamp{}, fmt.Errorf("add checkin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return models.Timestamp{}, appErrors.Wrap(err, appErrors.KindNotFound, "student does not exist")
		}
		return models.Timestamp{}, fmt.Errorf("add checkin: %w", err)
	}
	return ts, nil
}

// RemoveLast deletes the student's most recent check-in and returns its
// timestamp, or nil when the student has no check-ins. Used by manual
// correction tools.
func (r *CheckinRepository) RemoveLast(ctx context.Context, studentID string) (*models.Timestamp, error) {
	const selectQuery = `SELECT checkin_id, student_id, event_type, timestamp
          FROM checkins
         WHERE student_id = ?
      ORDER BY timestamp DESC
         LIMIT 1`
	var last models.Checkin
	if err := r.db.GetContext(ctx, &last, selectQuery, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find last checkin: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM checkins WHERE checkin_id = ?", last.CheckinID); err != nil {
		return nil, fmt.Errorf("remove last checkin: %w", err)
	}
	return &last.Timestamp, nil
}

// RemoveAll deletes every check-in for a student and returns the number
// removed.
func (r *CheckinRepository) RemoveAll(ctx context.Context, studentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM checkins WHERE student_id = ?", studentID)
	if err != nil {
		return 0, fmt.Errorf("remove checkins: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove checkins: %w", err)
	}
	return removed, nil
}

// CountForStudent returns the student's total check-in count.
func (r *CheckinRepository) CountForStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM checkins WHERE student_id = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return count, nil
}

// CountsSince returns per-student check-in counts for scans on or after
// the given date.
func (r *CheckinRepository) CountsSince(ctx context.Context, since models.Date) (map[string]int, error) {
	const query = `SELECT student_id, COUNT(student_id) AS checkins
          FROM checkins
         WHERE timestamp >= ?
      GROUP BY student_id
      ORDER BY student_id`
	rows := []struct {
		StudentID string `db:"student_id"`
		Checkins  int    `db:"checkins"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("count checkins since: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.StudentID] = row.Checkins
	}
	return counts, nil
}

// CountForEvent returns the number of check-ins recorded for one event.
func (r *CheckinRepository) CountForEvent(ctx context.Context, date models.Date, eventType models.EventType) (int, error) {
	const query = `SELECT COUNT(*) FROM checkins WHERE event_date = ? AND event_type = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date, eventType); err != nil {
		return 0, fmt.Errorf("count event checkins: %w", err)
	}
	return count, nil
}

// StudentIDsForEvent returns the IDs of students who checked in at the
// given event.
func (r *CheckinRepository) StudentIDsForEvent(ctx context.Context, date models.Date, eventType models.EventType) ([]string, error) {
	const query = `SELECT student_id FROM checkins WHERE event_date = ? AND event_type = ? ORDER BY student_id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, date, eventType); err != nil {
		return nil, fmt.Errorf("list event checkins: %w", err)
	}
	return ids, nil
}

// ListAll returns every check-in ordered by timestamp.
func (r *CheckinRepository) ListAll(ctx context.Context) ([]models.Checkin, error) {
	const query = `SELECT checkin_id, student_id, event_type, timestamp
          FROM checkins
      ORDER BY timestamp`
	checkins := []models.Checkin{}
	if err := r.db.SelectContext(ctx, &checkins, query); err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	return checkins, nil
}

// Count returns the total number of check-ins in the store.
func (r *CheckinRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM checkins"); err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return total, nil
}
