package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhill-robotics/attendance/pkg/config"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

func testConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "attendance.db"),
		BusyTimeout: 5 * time.Second,
	}
}

func TestCreateAndReopen(t *testing.T) {
	cfg := testConfig(t)

	db, err := Create(cfg, true)
	require.NoError(t, err)

	var tables []string
	require.NoError(t, db.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"))
	assert.Equal(t, []string{"checkins", "events", "students"}, tables)

	var views []string
	require.NoError(t, db.Select(&views, "SELECT name FROM sqlite_master WHERE type = 'view'"))
	assert.Equal(t, []string{"active_students"}, views)

	var indexes []string
	require.NoError(t, db.Select(&indexes,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_students_email'"))
	assert.Len(t, indexes, 1)

	require.NoError(t, db.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	var fk int
	require.NoError(t, reopened.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestCreateWithoutEmailIndex(t *testing.T) {
	cfg := testConfig(t)

	db, err := Create(cfg, false)
	require.NoError(t, err)
	defer db.Close()

	var indexes []string
	require.NoError(t, db.Select(&indexes,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_students_email'"))
	assert.Empty(t, indexes)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	cfg := testConfig(t)

	db, err := Create(cfg, false)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Create(cfg, false)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreIntegrity))
}

func TestOpenRequiresExistingFile(t *testing.T) {
	cfg := testConfig(t)

	_, err := Open(cfg)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreIntegrity))
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	db, err := Create(cfg, true)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateTables(db, true))
}
