package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

// ScanOutcome classifies what happened to a scanned badge code.
type ScanOutcome string

const (
	// OutcomeRecorded means a new check-in row was written.
	OutcomeRecorded ScanOutcome = "recorded"
	// OutcomeAlreadyCheckedIn means the student already has a check-in
	// for today's event of that type.
	OutcomeAlreadyCheckedIn ScanOutcome = "already_checked_in"
	// OutcomeUnknownStudent means no roster record matches the code.
	OutcomeUnknownStudent ScanOutcome = "unknown_student"
	// OutcomeIgnored means the same code arrived again within the
	// debounce window, almost certainly a repeated camera frame.
	OutcomeIgnored ScanOutcome = "ignored"
)

// ScanResult is what the kiosk surface displays after each scan.
type ScanResult struct {
	Outcome   ScanOutcome
	Student   *models.Student
	Timestamp models.Timestamp
}

type scanStudentReader interface {
	GetByID(ctx context.Context, studentID string) (*models.Student, error)
}

type scanCheckinWriter interface {
	HasCheckedInToday(ctx context.Context, studentID string, now time.Time) (bool, error)
	Add(ctx context.Context, studentID string, ts models.Timestamp, eventType models.EventType) (models.Timestamp, error)
	RemoveLast(ctx context.Context, studentID string) (*models.Timestamp, error)
}

// ScanService turns raw badge codes into attendance rows. Every scan
// resolves to exactly one outcome; a failed store write is the only
// error path.
type ScanService struct {
	students  scanStudentReader
	checkins  scanCheckinWriter
	eventType models.EventType
	debounce  *debounceSet
	logger    *zap.Logger
	now       func() time.Time
}

// NewScanService constructs a ScanService recording check-ins of the
// given event type. An empty event type falls back to the store default.
func NewScanService(students scanStudentReader, checkins scanCheckinWriter, eventType models.EventType, debounceWindow time.Duration, logger *zap.Logger) *ScanService {
	return &ScanService{
		students:  students,
		checkins:  checkins,
		eventType: eventType,
		debounce:  newDebounceSet(debounceWindow),
		logger:    logger,
		now:       time.Now,
	}
}

// Scan processes one decoded badge code.
func (s *ScanService) Scan(ctx context.Context, code string) (ScanResult, error) {
	now := s.now()

	if s.debounce.touch(code, now) {
		return ScanResult{Outcome: OutcomeIgnored}, nil
	}

	student, err := s.students.GetByID(ctx, code)
	if err != nil {
		return ScanResult{}, err
	}
	if student == nil {
		s.logger.Sugar().Infow("scan for unknown student", "code", code)
		return ScanResult{Outcome: OutcomeUnknownStudent}, nil
	}

	checkedIn, err := s.checkins.HasCheckedInToday(ctx, student.StudentID, now)
	if err != nil {
		return ScanResult{}, err
	}
	if checkedIn {
		s.logger.Sugar().Infow("duplicate scan", "student_id", student.StudentID)
		return ScanResult{Outcome: OutcomeAlreadyCheckedIn, Student: student}, nil
	}

	ts, err := s.checkins.Add(ctx, student.StudentID, models.NewTimestamp(now), s.eventType)
	if err != nil {
		// The uniqueness constraint is the arbiter; losing the race to
		// another writer is still just a duplicate.
		if appErrors.IsKind(err, appErrors.KindDuplicate) {
			s.logger.Sugar().Infow("duplicate scan", "student_id", student.StudentID)
			return ScanResult{Outcome: OutcomeAlreadyCheckedIn, Student: student}, nil
		}
		return ScanResult{}, err
	}

	s.logger.Sugar().Infow("check-in recorded", "student_id", student.StudentID, "timestamp", ts.String())
	return ScanResult{Outcome: OutcomeRecorded, Student: student, Timestamp: ts}, nil
}

// UndoLast removes the most recent check-in for a student, for the
// inevitable scan of the wrong badge. Returns the removed timestamp or
// nil when the student had no check-ins.
func (s *ScanService) UndoLast(ctx context.Context, studentID string) (*models.Timestamp, error) {
	ts, err := s.checkins.RemoveLast(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		s.logger.Sugar().Infow("check-in removed", "student_id", studentID, "timestamp", ts.String())
	}
	return ts, nil
}

// debounceSet remembers recently seen codes so a badge held in front of
// the camera does not register on every frame.
type debounceSet struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func newDebounceSet(window time.Duration) *debounceSet {
	if window <= 0 {
		window = 3 * time.Second
	}
	return &debounceSet{window: window, seen: make(map[string]time.Time)}
}

// touch reports whether the code was seen within the window, and marks
// it seen now either way. Expired entries are pruned on the way through.
func (d *debounceSet) touch(code string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, at := range d.seen {
		if now.Sub(at) > d.window {
			delete(d.seen, k)
		}
	}
	_, recent := d.seen[code]
	d.seen[code] = now
	return recent
}
