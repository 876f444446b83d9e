package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/pkg/config"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

type stubReportRepo struct {
	totals     []models.SeasonTotal
	summary    []models.EventSummary
	roster     []models.EventRosterEntry
	yearStart  models.Date
	buildStart models.Date
	rosterDate models.Date
	rosterType models.EventType
}

func (s *stubReportRepo) SeasonTotals(_ context.Context, yearStart, buildStart models.Date) ([]models.SeasonTotal, error) {
	s.yearStart = yearStart
	s.buildStart = buildStart
	return s.totals, nil
}

func (s *stubReportRepo) EventRoster(_ context.Context, date models.Date, eventType models.EventType) ([]models.EventRosterEntry, error) {
	s.rosterDate = date
	s.rosterType = eventType
	return s.roster, nil
}

func (s *stubReportRepo) EventSummary(_ context.Context) ([]models.EventSummary, error) {
	return s.summary, nil
}

func defaultSeasons() config.SeasonConfig {
	return config.SeasonConfig{
		SchoolYearMonth:  9,
		SchoolYearDay:    1,
		BuildSeasonMonth: 1,
		BuildSeasonDay:   6,
	}
}

func newReportFixture(t *testing.T, repo *stubReportRepo) (*ReportService, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewReportService(repo, defaultSeasons(), dir, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC) }
	return svc, dir
}

func TestReportSeasonTotalsResolvesWindows(t *testing.T) {
	repo := &stubReportRepo{}
	svc, _ := newReportFixture(t, repo)

	_, err := svc.SeasonTotals(context.Background())
	require.NoError(t, err)
	// As of 2026-02-14: the school year started the previous September,
	// build season this January.
	assert.Equal(t, "2025-09-01", repo.yearStart.String())
	assert.Equal(t, "2026-01-06", repo.buildStart.String())
}

func TestReportRenderSeasonTotalsCSV(t *testing.T) {
	last, err := models.ParseTimestamp("2026-01-10 18:00:00")
	require.NoError(t, err)
	repo := &stubReportRepo{totals: []models.SeasonTotal{
		{StudentID: "lovelace-ada-2027-042", FirstName: "Ada", LastName: "Lovelace", GradYear: 2027, YearCheckins: 12, BuildCheckins: 5, LastCheckin: &last},
		{StudentID: "curie-marie-2028-009", FirstName: "Marie", LastName: "Curie", GradYear: 2028},
	}}
	svc, dir := newReportFixture(t, repo)

	path, err := svc.RenderSeasonTotals(context.Background(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "season-totals-2026-02-14.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student ID,Last Name,First Name,Grad Year,Year Check-ins,Build Check-ins,Last Check-in", lines[0])
	assert.Equal(t, "lovelace-ada-2027-042,Lovelace,Ada,2027,12,5,2026-01-10 18:00:00", lines[1])
	assert.Equal(t, "curie-marie-2028-009,Curie,Marie,2028,0,0,", lines[2])
}

func TestReportRenderEventSummaryPDF(t *testing.T) {
	date, err := models.ParseDate("2026-01-10")
	require.NoError(t, err)
	desc := "Kickoff watch party"
	repo := &stubReportRepo{summary: []models.EventSummary{
		{EventDate: date, DayOfWeek: 6, EventType: models.EventKickoff, CheckinCount: 14, Description: &desc},
	}}
	svc, _ := newReportFixture(t, repo)

	path, err := svc.RenderEventSummary(context.Background(), FormatPDF)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestReportRenderEventRoster(t *testing.T) {
	ts, err := models.ParseTimestamp("2026-01-10 18:00:00")
	require.NoError(t, err)
	repo := &stubReportRepo{roster: []models.EventRosterEntry{
		{StudentID: "lovelace-ada-2027-042", FirstName: "Ada", LastName: "Lovelace", GradYear: 2027, Email: "ada@example.org", Timestamp: ts},
	}}
	svc, _ := newReportFixture(t, repo)

	path, err := svc.RenderEventRoster(context.Background(), "2026-01-10::kickoff", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-10", repo.rosterDate.String())
	assert.Equal(t, models.EventKickoff, repo.rosterType)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ada@example.org")
}

func TestReportRejectsBadInputs(t *testing.T) {
	repo := &stubReportRepo{}
	svc, _ := newReportFixture(t, repo)
	ctx := context.Background()

	_, err := svc.EventRoster(ctx, "not-a-key")
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))

	_, err = svc.RenderSeasonTotals(ctx, ReportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}
