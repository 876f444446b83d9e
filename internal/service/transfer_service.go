package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

type transferStudentRepo interface {
	Insert(ctx context.Context, student *models.Student) error
	InsertOrIgnore(ctx context.Context, student *models.Student) (bool, error)
	ListAll(ctx context.Context, includeInactive bool) ([]models.Student, error)
	ListIDs(ctx context.Context, includeInactive bool) ([]string, error)
	Count(ctx context.Context) (int, error)
}

type transferEventRepo interface {
	Add(ctx context.Context, event models.Event) (bool, error)
	ListAll(ctx context.Context) ([]models.Event, error)
}

type transferCheckinRepo interface {
	Add(ctx context.Context, studentID string, ts models.Timestamp, eventType models.EventType) (models.Timestamp, error)
	ListAll(ctx context.Context) ([]models.Checkin, error)
	Count(ctx context.Context) (int, error)
}

// TransferResult summarises a bulk transfer: rows applied per entity,
// rows skipped as already present, and per-row failures.
type TransferResult struct {
	Applied  models.Counts
	Skipped  models.Counts
	Failures []string
}

// TransferService moves whole stores around: JSON snapshot export,
// import into a fresh store, and merge of another store's rows into
// this one.
type TransferService struct {
	students transferStudentRepo
	events   transferEventRepo
	checkins transferCheckinRepo
	logger   *zap.Logger
}

// NewTransferService constructs a TransferService over the target
// store's repositories.
func NewTransferService(students transferStudentRepo, events transferEventRepo, checkins transferCheckinRepo, logger *zap.Logger) *TransferService {
	return &TransferService{
		students: students,
		events:   events,
		checkins: checkins,
		logger:   logger,
	}
}

// Export reads the entire store, inactive students included, into a
// snapshot.
func (s *TransferService) Export(ctx context.Context) (*models.Snapshot, error) {
	students, err := s.students.ListAll(ctx, true)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	checkins, err := s.checkins.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Students: students,
		Events:   events,
		Checkins: make([]models.SnapshotCheckin, 0, len(checkins)),
	}
	for _, c := range checkins {
		snap.Checkins = append(snap.Checkins, models.SnapshotCheckin{
			StudentID: c.StudentID,
			EventType: c.EventType,
			Timestamp: c.Timestamp,
		})
	}
	return snap, nil
}

// ExportToFile writes the snapshot as indented JSON.
func (s *TransferService) ExportToFile(ctx context.Context, path string) (*models.Snapshot, error) {
	snap, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Sugar().Infow("snapshot exported",
		"path", path,
		"students", len(snap.Students),
		"events", len(snap.Events),
		"checkins", len(snap.Checkins))
	return snap, nil
}

// ReadSnapshotFile parses a JSON snapshot from disk.
func ReadSnapshotFile(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindStoreIntegrity, "could not read snapshot file")
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "malformed snapshot file")
	}
	return &snap, nil
}

// Import loads a snapshot into an empty store, preserving original
// student IDs. A non-empty store is rejected; merge is the tool for
// combining populated stores.
func (s *TransferService) Import(ctx context.Context, snap *models.Snapshot) (TransferResult, error) {
	var result TransferResult

	studentCount, err := s.students.Count(ctx)
	if err != nil {
		return result, err
	}
	checkinCount, err := s.checkins.Count(ctx)
	if err != nil {
		return result, err
	}
	if studentCount > 0 || checkinCount > 0 {
		return result, appErrors.Clone(appErrors.ErrInvalidTransition, "import requires an empty store")
	}

	for i := range snap.Students {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.students.Insert(ctx, &snap.Students[i]); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("student %s: %v", snap.Students[i].StudentID, err))
			continue
		}
		result.Applied.Students++
	}
	for _, ev := range snap.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.events.Add(ctx, ev)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("event %s: %v", ev.Key(), err))
			continue
		}
		if created {
			result.Applied.Events++
		} else {
			result.Skipped.Events++
		}
	}
	applied, skipped, failures := s.applyCheckins(ctx, snap.Checkins)
	result.Applied.Checkins = applied
	result.Skipped.Checkins = skipped
	result.Failures = append(result.Failures, failures...)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.logger.Sugar().Infow("snapshot imported",
		"students", result.Applied.Students,
		"events", result.Applied.Events,
		"checkins", result.Applied.Checkins,
		"failures", len(result.Failures))
	return result, nil
}

// Merge folds another store's snapshot into this one. Students are
// matched by ID; rows whose ID or email collides with an existing
// record are skipped. Check-ins ride on the uniqueness constraint, so
// re-running a merge is harmless.
func (s *TransferService) Merge(ctx context.Context, snap *models.Snapshot) (TransferResult, error) {
	var result TransferResult

	existing, err := s.students.ListIDs(ctx, true)
	if err != nil {
		return result, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	for i := range snap.Students {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sid := snap.Students[i].StudentID
		if _, ok := known[sid]; ok {
			result.Skipped.Students++
			continue
		}
		inserted, err := s.students.InsertOrIgnore(ctx, &snap.Students[i])
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("student %s: %v", sid, err))
			continue
		}
		if !inserted {
			s.logger.Sugar().Warnw("merge skipped student with conflicting email", "student_id", sid)
			result.Skipped.Students++
			continue
		}
		known[sid] = struct{}{}
		result.Applied.Students++
	}

	for _, ev := range snap.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.events.Add(ctx, ev)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("event %s: %v", ev.Key(), err))
			continue
		}
		if created {
			result.Applied.Events++
		} else {
			result.Skipped.Events++
		}
	}

	applied, skipped, failures := s.applyCheckins(ctx, snap.Checkins)
	result.Applied.Checkins = applied
	result.Skipped.Checkins = skipped
	result.Failures = append(result.Failures, failures...)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.logger.Sugar().Infow("merge finished",
		"students_added", result.Applied.Students,
		"checkins_added", result.Applied.Checkins,
		"checkins_skipped", result.Skipped.Checkins,
		"failures", len(result.Failures))
	return result, nil
}

// applyCheckins inserts snapshot check-ins one at a time. Duplicates
// are skipped; a missing student (merge of a row whose owner was
// skipped) is a failure worth surfacing.
func (s *TransferService) applyCheckins(ctx context.Context, checkins []models.SnapshotCheckin) (applied, skipped int, failures []string) {
	for _, c := range checkins {
		if ctx.Err() != nil {
			return applied, skipped, failures
		}
		_, err := s.checkins.Add(ctx, c.StudentID, c.Timestamp, c.EventType)
		if err == nil {
			applied++
			continue
		}
		if appErrors.IsKind(err, appErrors.KindDuplicate) {
			skipped++
			continue
		}
		failures = append(failures, fmt.Sprintf("checkin %s@%s: %v", c.StudentID, c.Timestamp.String(), err))
	}
	return applied, skipped, failures
}
