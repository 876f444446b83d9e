package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

// EventRepository manages the event calendar. Event identity is the
// composite (event_date, event_type) pair; the table's conflict-ignore
// primary key makes duplicate inserts silent no-ops.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Add inserts the event and reports whether a new row was actually
// created. Inserting an existing (date, type) pair returns false.
func (r *EventRepository) Add(ctx context.Context, event models.Event) (bool, error) {
	if !event.EventType.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", event.EventType))
	}
	const query = `INSERT INTO events (event_date, event_type, description)
        VALUES (:event_date, :event_type, :description)`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return affected == 1, nil
}

// Exists reports whether the (date, type) event is on the calendar.
func (r *EventRepository) Exists(ctx context.Context, date models.Date, eventType models.EventType) (bool, error) {
	return eventExists(ctx, r.db, date, eventType)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func eventExists(ctx context.Context, q queryer, date models.Date, eventType models.EventType) (bool, error) {
	const query = `SELECT 1 FROM events WHERE event_date = ? AND event_type = ? LIMIT 1`
	var one int
	if err := q.GetContext(ctx, &one, query, date, eventType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check event: %w", err)
	}
	return true, nil
}

// Get fetches a single event, or nil when it is not on the calendar.
func (r *EventRepository) Get(ctx context.Context, date models.Date, eventType models.EventType) (*models.Event, error) {
	const query = `SELECT event_date, event_type, description
          FROM events
         WHERE event_date = ? AND event_type = ?`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, date, eventType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// Delete removes the event and reports whether a row was deleted. An
// event that still has check-ins is protected by the foreign key and
// reports InvalidTransition.
func (r *EventRepository) Delete(ctx context.Context, date models.Date, eventType models.EventType) (bool, error) {
	const query = `DELETE FROM events WHERE event_date = ? AND event_type = ?`
	res, err := r.db.ExecContext(ctx, query, date, eventType)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, appErrors.Wrap(err, appErrors.KindInvalidTransition, "event still has check-ins")
		}
		return false, fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return affected == 1, nil
}

// ListAll returns the calendar ordered by (event_date, event_type).
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	const query = `SELECT event_date, event_type, description
          FROM events
      ORDER BY event_date, event_type`
	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// UpdateDescription replaces the event's free-text description. Setting
// the description it already has is a no-op.
func (r *EventRepository) UpdateDescription(ctx context.Context, event models.Event, description *string) error {
	if equalDescription(event.Description, description) {
		return nil
	}
	const query = `UPDATE events
           SET description = ?
         WHERE event_date = ? AND event_type = ?`
	if _, err := r.db.ExecContext(ctx, query, description, event.EventDate, event.EventType); err != nil {
		return fmt.Errorf("update event description: %w", err)
	}
	return nil
}

func equalDescription(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// UpdateEventType changes an event's type and repoints every check-in
// recorded against the old (date, type) pair to the new type, atomically.
// Returns the number of check-ins migrated. The original event must exist;
// an unchanged type returns 0 without touching the store.
//
// When an event with the target (date, newType) already exists, the
// conflict-ignore primary key skips the events UPDATE and the old
// (date, type) row stays behind with zero check-ins once they migrate.
// ScanForNewEvents never resurrects it and Delete removes it cleanly.
func (r *EventRepository) UpdateEventType(ctx context.Context, event models.Event, newType models.EventType) (int64, error) {
	if !newType.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", newType))
	}
	if event.EventType == newType {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("update event type: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exists, err := eventExists(ctx, tx, event.EventDate, event.EventType)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, appErrors.Clone(appErrors.ErrInvalidTransition, "original event does not exist")
	}

	const eventQuery = `UPDATE events
           SET event_type = ?
         WHERE event_date = ? AND event_type = ?`
	if _, err := tx.ExecContext(ctx, eventQuery, newType, event.EventDate, event.EventType); err != nil {
		return 0, fmt.Errorf("update event type: %w", err)
	}

	const checkinQuery = `UPDATE checkins
           SET event_type = ?
         WHERE event_date = ? AND event_type = ?`
	res, err := tx.ExecContext(ctx, checkinQuery, newType, event.EventDate, event.EventType)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, appErrors.Wrap(err, appErrors.KindDuplicate,
				"a student already has a check-in for the target event type on that date")
		}
		return 0, fmt.Errorf("migrate checkins: %w", err)
	}
	migrated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("migrate checkins: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("update event type: %w", err)
	}
	return migrated, nil
}

// UpdateEventDate moves an event to a new date. Permitted only while no
// check-in references the event: check-ins derive their event_date from
// their own timestamps and cannot be re-timestamped in bulk.
func (r *EventRepository) UpdateEventDate(ctx context.Context, event models.Event, newDate models.Date) error {
	if event.EventDate.Equal(newDate.Time) {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update event date: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exists, err := eventExists(ctx, tx, event.EventDate, event.EventType)
	if err != nil {
		return err
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "original event does not exist")
	}

	var checkins int
	const countQuery = `SELECT COUNT(*) FROM checkins WHERE event_date = ? AND event_type = ?`
	if err := tx.GetContext(ctx, &checkins, countQuery, event.EventDate, event.EventType); err != nil {
		return fmt.Errorf("count event checkins: %w", err)
	}
	if checkins > 0 {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "cannot change date; check-ins exist for this event")
	}

	const query = `UPDATE events
           SET event_date = ?
         WHERE event_date = ? AND event_type = ?`
	if _, err := tx.ExecContext(ctx, query, newDate, event.EventDate, event.EventType); err != nil {
		return fmt.Errorf("update event date: %w", err)
	}
	return tx.Commit()
}

// ScanForNewEvents reconciles the calendar against recorded check-ins:
// every distinct (event_date, event_type) pair appearing in checkins ends
// up with exactly one event row. Check-ins with a blank type are filed
// under defaultType (meeting when empty). The conflict-ignore primary key
// makes the operation idempotent; the return value counts rows actually
// inserted, so a second run with no new check-ins returns 0.
func (r *EventRepository) ScanForNewEvents(ctx context.Context, defaultType models.EventType) (int64, error) {
	if defaultType == "" {
		defaultType = models.EventMeeting
	}
	if !defaultType.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", defaultType))
	}
	const query = `INSERT INTO events (event_date, event_type)
        SELECT DISTINCT event_date,
               CASE WHEN event_type IS NULL OR event_type = '' THEN ? ELSE event_type END
          FROM checkins`
	res, err := r.db.ExecContext(ctx, query, defaultType)
	if err != nil {
		return 0, fmt.Errorf("scan for new events: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scan for new events: %w", err)
	}
	return inserted, nil
}
