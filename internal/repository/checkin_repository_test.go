package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

func TestCheckinRepositoryAddCreatesEvent(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	events := NewEventRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")

	ts := mustTimestamp(t, "2026-01-10 18:04:05")
	got, err := checkins.Add(ctx, "lovelace-ada-2027-042", ts, models.EventMeeting)
	require.NoError(t, err)
	assert.Equal(t, ts.String(), got.String())

	// The event row appears as a side effect of the first check-in.
	exists, err := events.Exists(ctx, mustDate(t, "2026-01-10"), models.EventMeeting)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := checkins.CountForStudent(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckinRepositoryAddDefaultsToMeeting(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")

	_, err := checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 18:00:00"), "")
	require.NoError(t, err)

	count, err := checkins.CountForEvent(ctx, mustDate(t, "2026-01-10"), models.EventMeeting)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckinRepositoryAddDuplicate(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")

	_, err := checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 18:00:00"), models.EventMeeting)
	require.NoError(t, err)

	// Later the same day, same event type: blocked even at a new time.
	_, err = checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 20:30:00"), models.EventMeeting)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindDuplicate))

	// A different event type on the same date is a separate check-in.
	_, err = checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 20:30:00"), models.EventOutreach)
	require.NoError(t, err)

	count, err := checkins.CountForStudent(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCheckinRepositoryAddUnknownStudent(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)

	_, err := checkins.Add(context.Background(), "nobody-here-2030-001", mustTimestamp(t, "2026-01-10 18:00:00"), models.EventMeeting)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestCheckinRepositoryHasCheckedInToday(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")

	now := time.Date(2026, 1, 10, 19, 0, 0, 0, time.UTC)

	checked, err := checkins.HasCheckedInToday(ctx, "lovelace-ada-2027-042", now)
	require.NoError(t, err)
	assert.False(t, checked)

	_, err = checkins.Add(ctx, "lovelace-ada-2027-042", models.NewTimestamp(now.Add(-time.Hour)), models.EventMeeting)
	require.NoError(t, err)

	checked, err = checkins.HasCheckedInToday(ctx, "lovelace-ada-2027-042", now)
	require.NoError(t, err)
	assert.True(t, checked)

	// Yesterday's check-in does not count for today.
	tomorrow := now.Add(24 * time.Hour)
	checked, err = checkins.HasCheckedInToday(ctx, "lovelace-ada-2027-042", tomorrow)
	require.NoError(t, err)
	assert.False(t, checked)
}

func TestCheckinRepositoryRemoveLast(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")

	_, err := checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 18:00:00"), models.EventMeeting)
	require.NoError(t, err)
	_, err = checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-12 18:00:00"), models.EventMeeting)
	require.NoError(t, err)

	removed, err := checkins.RemoveLast(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "2026-01-12 18:00:00", removed.String())

	count, err := checkins.CountForStudent(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err = checkins.RemoveLast(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	require.NotNil(t, removed)

	removed, err = checkins.RemoveLast(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestCheckinRepositoryCountsSince(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")
	seedStudent(t, db, "hopper-grace-2026-117", "Grace", "Hopper", 2026, "grace@example.org")

	for _, row := range []struct {
		id string
		ts string
	}{
		{"lovelace-ada-2027-042", "2025-11-20 18:00:00"},
		{"lovelace-ada-2027-042", "2026-01-10 18:00:00"},
		{"lovelace-ada-2027-042", "2026-01-12 18:00:00"},
		{"hopper-grace-2026-117", "2026-01-10 18:05:00"},
	} {
		_, err := checkins.Add(ctx, row.id, mustTimestamp(t, row.ts), models.EventMeeting)
		require.NoError(t, err)
	}

	counts, err := checkins.CountsSince(ctx, mustDate(t, "2026-01-06"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"lovelace-ada-2027-042": 2,
		"hopper-grace-2026-117": 1,
	}, counts)
}

func TestCheckinRepositoryStudentIDsForEvent(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")
	seedStudent(t, db, "hopper-grace-2026-117", "Grace", "Hopper", 2026, "grace@example.org")

	_, err := checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, "2026-01-10 18:00:00"), models.EventMeeting)
	require.NoError(t, err)
	_, err = checkins.Add(ctx, "hopper-grace-2026-117", mustTimestamp(t, "2026-01-10 18:05:00"), models.EventMeeting)
	require.NoError(t, err)

	ids, err := checkins.StudentIDsForEvent(ctx, mustDate(t, "2026-01-10"), models.EventMeeting)
	require.NoError(t, err)
	assert.Equal(t, []string{"hopper-grace-2026-117", "lovelace-ada-2027-042"}, ids)

	ids, err = checkins.StudentIDsForEvent(ctx, mustDate(t, "2026-01-11"), models.EventMeeting)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCheckinRepositoryRemoveAll(t *testing.T) {
	db := newTestDB(t)
	checkins := NewCheckinRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "lovelace-ada-2027-042", "Ada", "Lovelace", 2027, "ada@example.org")
	for _, ts := range []string{"2026-01-10 18:00:00", "2026-01-12 18:00:00", "2026-01-14 18:00:00"} {
		_, err := checkins.Add(ctx, "lovelace-ada-2027-042", mustTimestamp(t, ts), models.EventMeeting)
		require.NoError(t, err)
	}

	removed, err := checkins.RemoveAll(ctx, "lovelace-ada-2027-042")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	count, err := checkins.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
