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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Insert adds a new student row. A uniqueness violation (student_id
// collision or, when the email index is enabled, a duplicate email) is
// reported as a Duplicate error carrying the driver detail.
func (r *StudentRepository) Insert(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (student_id, first_name, last_name, grad_year, email, deactivated_on)
        VALUES (:student_id, :first_name, :last_name, :grad_year, :email, :deactivated_on)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.KindDuplicate, "student already exists")
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// InsertOrIgnore adds a student unless a uniqueness constraint would
// fire, in which case the row is silently skipped. Used by merge, where
// an email collision with an existing record must not abort the batch.
// Returns whether a row was actually inserted.
func (r *StudentRepository) InsertOrIgnore(ctx context.Context, student *models.Student) (bool, error) {
	const query = `INSERT OR IGNORE INTO students (student_id, first_name, last_name, grad_year, email, deactivated_on)
        VALUES (:student_id, :first_name, :last_name, :grad_year, :email, :deactivated_on)`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return false, fmt.Errorf("insert student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert student: %w", err)
	}
	return affected == 1, nil
}

// Update overwrites every field of an existing student except the ID.
// Updating an absent student reports NotFound.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students
           SET first_name = :first_name,
               last_name = :last_name,
               grad_year = :grad_year,
               email = :email,
               deactivated_on = :deactivated_on
         WHERE student_id = :student_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.KindDuplicate, "email already in use")
		}
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// Deactivate soft-deletes a student as of the given date. History is
// retained; the student drops out of default listings.
func (r *StudentRepository) Deactivate(ctx context.Context, studentID string, on models.Date) error {
	return r.setDeactivated(ctx, studentID, &on)
}

// Reactivate clears a student's deactivation marker.
func (r *StudentRepository) Reactivate(ctx context.Context, studentID string) error {
	return r.setDeactivated(ctx, studentID, nil)
}

func (r *StudentRepository) setDeactivated(ctx context.Context, studentID string, on *models.Date) error {
	const query = `UPDATE students SET deactivated_on = ? WHERE student_id = ?`
	res, err := r.db.ExecContext(ctx, query, on, studentID)
	if err != nil {
		return fmt.Errorf("set deactivated_on: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set deactivated_on: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// GetByID fetches a student, or nil when no such student exists. A scan of
// an unregistered ID is an expected outcome, not an error.
func (r *StudentRepository) GetByID(ctx context.Context, studentID string) (*models.Student, error) {
	const query = `SELECT student_id, first_name, last_name, grad_year, email, deactivated_on
          FROM students
         WHERE student_id = ?`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// ListAll returns students ordered by student_id, the stable export order.
// Deactivated students are excluded unless includeInactive is set.
func (r *StudentRepository) ListAll(ctx context.Context, includeInactive bool) ([]models.Student, error) {
	return r.list(ctx, includeInactive, "student_id")
}

// ListByName returns students ordered by (last_name, first_name), the
// roster display order. Deactivated students are excluded unless
// includeInactive is set.
func (r *StudentRepository) ListByName(ctx context.Context, includeInactive bool) ([]models.Student, error) {
	return r.list(ctx, includeInactive, "last_name, first_name")
}

func (r *StudentRepository) list(ctx context.Context, includeInactive bool, order string) ([]models.Student, error) {
	table := "active_students"
	if includeInactive {
		table = "students"
	}
	query := fmt.Sprintf(`SELECT student_id, first_name, last_name, grad_year, email, deactivated_on
          FROM %s
      ORDER BY %s`, table, order)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListIDs returns every student ID in order, optionally including
// deactivated students.
func (r *StudentRepository) ListIDs(ctx context.Context, includeInactive bool) ([]string, error) {
	table := "active_students"
	if includeInactive {
		table = "students"
	}
	query := fmt.Sprintf("SELECT student_id FROM %s ORDER BY student_id", table)
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	return ids, nil
}

// Exists reports whether a student with the given ID is present.
func (r *StudentRepository) Exists(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE student_id = ? LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student: %w", err)
	}
	return true, nil
}

// ExistsByEmail checks for another student using the given email address,
// optionally excluding one student ID (for edits).
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = ?"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND student_id <> ?"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// Count returns the total number of students, active or not.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// Purge permanently removes a student and every check-in they own, in one
// transaction. This is the hard-delete escape hatch for data-retention
// erasure; day-to-day removal goes through Deactivate.
func (r *StudentRepository) Purge(ctx context.Context, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM checkins WHERE student_id = ?", studentID); err != nil {
		return fmt.Errorf("purge checkins: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM students WHERE student_id = ?", studentID)
	if err != nil {
		return fmt.Errorf("purge student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("purge student: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return tx.Commit()
}
