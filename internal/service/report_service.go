package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/pkg/config"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
	"github.com/oakhill-robotics/attendance/pkg/export"
)

// ReportFormat selects the rendered output format.
type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

type reportRepo interface {
	SeasonTotals(ctx context.Context, yearStart, buildStart models.Date) ([]models.SeasonTotal, error)
	EventRoster(ctx context.Context, date models.Date, eventType models.EventType) ([]models.EventRosterEntry, error)
	EventSummary(ctx context.Context) ([]models.EventSummary, error)
}

// ReportService assembles attendance reports and renders them to the
// exports directory.
type ReportService struct {
	repo    reportRepo
	seasons config.SeasonConfig
	dir     string
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs a ReportService writing rendered files
// under dir.
func NewReportService(repo reportRepo, seasons config.SeasonConfig, dir string, logger *zap.Logger) *ReportService {
	return &ReportService{
		repo:    repo,
		seasons: seasons,
		dir:     dir,
		logger:  logger,
		now:     time.Now,
	}
}

// SeasonTotals returns per-student check-in counts over the current
// school year and build season windows.
func (s *ReportService) SeasonTotals(ctx context.Context) ([]models.SeasonTotal, error) {
	yearStart, buildStart := s.seasons.SeasonWindows(s.now())
	return s.repo.SeasonTotals(ctx, models.NewDate(yearStart), models.NewDate(buildStart))
}

// EventSummary returns one row per known event plus any orphan check-in
// groups not yet promoted to events.
func (s *ReportService) EventSummary(ctx context.Context) ([]models.EventSummary, error) {
	return s.repo.EventSummary(ctx)
}

// EventRoster lists who attended one event, identified by its
// date::type key.
func (s *ReportService) EventRoster(ctx context.Context, key string) ([]models.EventRosterEntry, error) {
	date, eventType, err := models.ParseEventKey(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "invalid event key")
	}
	return s.repo.EventRoster(ctx, date, eventType)
}

// RenderSeasonTotals writes the season report to the exports directory
// and returns the file path.
func (s *ReportService) RenderSeasonTotals(ctx context.Context, format ReportFormat) (string, error) {
	totals, err := s.SeasonTotals(ctx)
	if err != nil {
		return "", err
	}
	ds := seasonTotalsDataset(totals)
	return s.render(ds, "season-totals", format)
}

// RenderEventSummary writes the per-event report to the exports
// directory and returns the file path.
func (s *ReportService) RenderEventSummary(ctx context.Context, format ReportFormat) (string, error) {
	events, err := s.EventSummary(ctx)
	if err != nil {
		return "", err
	}
	ds := eventSummaryDataset(events)
	return s.render(ds, "event-summary", format)
}

// RenderEventRoster writes a single event's attendee list and returns
// the file path.
func (s *ReportService) RenderEventRoster(ctx context.Context, key string, format ReportFormat) (string, error) {
	roster, err := s.EventRoster(ctx, key)
	if err != nil {
		return "", err
	}
	ds := eventRosterDataset(key, roster)
	return s.render(ds, "event-roster", format)
}

func (s *ReportService) render(ds export.Dataset, name string, format ReportFormat) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = export.RenderCSV(ds)
	case FormatPDF:
		data, err = export.RenderPDF(ds)
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report format %q", format))
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create exports dir: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.%s", name, s.now().Format("2006-01-02"), format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	s.logger.Sugar().Infow("report rendered", "report", name, "format", string(format), "path", path, "rows", len(ds.Rows))
	return path, nil
}

func seasonTotalsDataset(totals []models.SeasonTotal) export.Dataset {
	ds := export.Dataset{
		Title:   "Season Attendance Totals",
		Headers: []string{"Student ID", "Last Name", "First Name", "Grad Year", "Year Check-ins", "Build Check-ins", "Last Check-in"},
	}
	for _, t := range totals {
		last := ""
		if t.LastCheckin != nil {
			last = t.LastCheckin.String()
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"Student ID":      t.StudentID,
			"Last Name":       t.LastName,
			"First Name":      t.FirstName,
			"Grad Year":       strconv.Itoa(t.GradYear),
			"Year Check-ins":  strconv.Itoa(t.YearCheckins),
			"Build Check-ins": strconv.Itoa(t.BuildCheckins),
			"Last Check-in":   last,
		})
	}
	return ds
}

func eventSummaryDataset(events []models.EventSummary) export.Dataset {
	ds := export.Dataset{
		Title:   "Attendance by Event",
		Headers: []string{"Date", "Day", "Type", "Check-ins", "Description"},
	}
	for _, e := range events {
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"Date":        e.EventDate.String(),
			"Day":         e.EventDate.Weekday().String(),
			"Type":        string(e.EventType),
			"Check-ins":   strconv.Itoa(e.CheckinCount),
			"Description": desc,
		})
	}
	return ds
}

func eventRosterDataset(key string, roster []models.EventRosterEntry) export.Dataset {
	ds := export.Dataset{
		Title:   fmt.Sprintf("Event Roster %s", key),
		Headers: []string{"Student ID", "Last Name", "First Name", "Grad Year", "Email", "Checked In At"},
	}
	for _, r := range roster {
		ds.Rows = append(ds.Rows, map[string]string{
			"Student ID":    r.StudentID,
			"Last Name":     r.LastName,
			"First Name":    r.FirstName,
			"Grad Year":     strconv.Itoa(r.GradYear),
			"Email":         r.Email,
			"Checked In At": r.Timestamp.String(),
		})
	}
	return ds
}
