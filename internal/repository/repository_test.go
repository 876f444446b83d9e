package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/pkg/config"
	"github.com/oakhill-robotics/attendance/pkg/database"
)

// newTestDB creates a fresh store in a temp dir. Repository tests run
// against the real schema so generated columns, constraints and views
// behave exactly as they do in production.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return newTestDBWithPolicy(t, false)
}

func newTestDBWithPolicy(t *testing.T, enforceUniqueEmail bool) *sqlx.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "attendance.db"),
		BusyTimeout: 5 * time.Second,
	}
	db, err := database.Create(cfg, enforceUniqueEmail)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedStudent(t *testing.T, db *sqlx.DB, id, first, last string, gradYear int, email string) *models.Student {
	t.Helper()
	student := &models.Student{
		StudentID: id,
		FirstName: first,
		LastName:  last,
		GradYear:  gradYear,
		Email:     email,
	}
	require.NoError(t, NewStudentRepository(db).Insert(context.Background(), student))
	return student
}

func mustDate(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustTimestamp(t *testing.T, s string) models.Timestamp {
	t.Helper()
	ts, err := models.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}
