package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

// newMockDB wires a sqlmock connection through sqlx for tests that pin
// down error translation without touching a real store.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlite"), mock
}

func TestStudentRepositoryInsertTranslatesUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: students.student_id (1555)"))

	err := repo.Insert(context.Background(), &models.Student{
		StudentID: "lovelace-ada-2027-042",
		FirstName: "Ada",
		LastName:  "Lovelace",
		GradYear:  2027,
		Email:     "ada@example.org",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryInsertPropagatesDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnError(errors.New("disk I/O error"))

	err := repo.Insert(context.Background(), &models.Student{
		StudentID: "lovelace-ada-2027-042",
		FirstName: "Ada",
		LastName:  "Lovelace",
		GradYear:  2027,
		Email:     "ada@example.org",
	})
	require.Error(t, err)
	assert.False(t, appErrors.IsKind(err, appErrors.KindDuplicate))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Student{
		StudentID: "nobody-here-2030-001",
		FirstName: "X",
		LastName:  "Y",
		GradYear:  2030,
		Email:     "x@example.org",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
