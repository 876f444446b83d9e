package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/pkg/config"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

// maxIDAttempts bounds the random-suffix retry loop when a generated
// student ID collides with an existing one.
const maxIDAttempts = 100

// AddStudentRequest carries the fields needed to create a roster entry.
type AddStudentRequest struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	GradYear  int    `validate:"required,gte=2000,lte=2100"`
	Email     string `validate:"required,email"`
}

// UpdateStudentRequest carries a full replacement of a student's
// mutable fields.
type UpdateStudentRequest struct {
	FirstName     string `validate:"required"`
	LastName      string `validate:"required"`
	GradYear      int    `validate:"required,gte=2000,lte=2100"`
	Email         string `validate:"required,email"`
	DeactivatedOn *models.Date
}

// BatchFailure records one rejected row of a bulk import.
type BatchFailure struct {
	Line   int
	Reason string
}

// BatchResult summarises a bulk import. The batch always runs to
// completion; failed rows are reported, not fatal.
type BatchResult struct {
	Succeeded int
	Failed    int
	Failures  []BatchFailure
}

// AsError returns a PartialBatch error when any row failed, nil
// otherwise.
func (b BatchResult) AsError() error {
	if b.Failed == 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrPartialBatch, fmt.Sprintf("%d of %d rows failed", b.Failed, b.Succeeded+b.Failed))
}

type rosterStudentRepo interface {
	Insert(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, studentID string) (*models.Student, error)
	Exists(ctx context.Context, studentID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ListAll(ctx context.Context, includeInactive bool) ([]models.Student, error)
	ListByName(ctx context.Context, includeInactive bool) ([]models.Student, error)
	Deactivate(ctx context.Context, studentID string, on models.Date) error
	Reactivate(ctx context.Context, studentID string) error
	Purge(ctx context.Context, studentID string) error
}

// RosterService manages the student roster: creation with generated
// IDs, edits, soft-delete lifecycle, and bulk CSV import.
type RosterService struct {
	repo     rosterStudentRepo
	policy   config.RosterConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(repo rosterStudentRepo, policy config.RosterConfig, logger *zap.Logger) *RosterService {
	return &RosterService{
		repo:     repo,
		policy:   policy,
		validate: validator.New(),
		logger:   logger,
	}
}

// Add creates a student with a freshly generated ID. On an ID
// collision a new random suffix is drawn, up to maxIDAttempts times.
func (s *RosterService) Add(ctx context.Context, req AddStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "invalid student")
	}
	if err := s.checkEmailPolicy(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		GradYear:  req.GradYear,
		Email:     strings.TrimSpace(req.Email),
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		student.StudentID = models.NewStudentID(student.FirstName, student.LastName, student.GradYear)
		err := s.repo.Insert(ctx, student)
		if err == nil {
			s.logger.Sugar().Infow("student added", "student_id", student.StudentID)
			return student, nil
		}
		if appErrors.IsKind(err, appErrors.KindDuplicate) && strings.Contains(err.Error(), "students.student_id") {
			continue
		}
		return nil, err
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("could not generate a unique id for %s %s after %d attempts", student.FirstName, student.LastName, maxIDAttempts))
}

// Update replaces all mutable fields of an existing student.
func (s *RosterService) Update(ctx context.Context, studentID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "invalid student")
	}
	if err := s.checkEmailPolicy(ctx, req.Email, studentID); err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentID:     studentID,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		GradYear:      req.GradYear,
		Email:         strings.TrimSpace(req.Email),
		DeactivatedOn: req.DeactivatedOn,
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Get fetches a single roster entry, nil when absent.
func (s *RosterService) Get(ctx context.Context, studentID string) (*models.Student, error) {
	return s.repo.GetByID(ctx, studentID)
}

// List returns the roster ordered by last then first name. Inactive
// students are included only on request.
func (s *RosterService) List(ctx context.Context, includeInactive bool) ([]models.Student, error) {
	return s.repo.ListByName(ctx, includeInactive)
}

// Deactivate soft-deletes a student as of the given date.
func (s *RosterService) Deactivate(ctx context.Context, studentID string, on models.Date) error {
	if err := s.repo.Deactivate(ctx, studentID, on); err != nil {
		return err
	}
	s.logger.Sugar().Infow("student deactivated", "student_id", studentID, "on", on.String())
	return nil
}

// Reactivate clears a student's deactivation marker.
func (s *RosterService) Reactivate(ctx context.Context, studentID string) error {
	if err := s.repo.Reactivate(ctx, studentID); err != nil {
		return err
	}
	s.logger.Sugar().Infow("student reactivated", "student_id", studentID)
	return nil
}

// Purge permanently removes a student and their attendance history.
// Deactivation is the normal path; this exists for records created by
// mistake.
func (s *RosterService) Purge(ctx context.Context, studentID string) error {
	if err := s.repo.Purge(ctx, studentID); err != nil {
		return err
	}
	s.logger.Sugar().Warnw("student purged", "student_id", studentID)
	return nil
}

// ImportCSV bulk-adds students from a CSV stream with a header row of
// first_name, last_name, grad_year, email (any order). Every row is
// attempted; failures are collected per line and never abort the batch.
func (s *RosterService) ImportCSV(ctx context.Context, r io.Reader) (BatchResult, error) {
	var result BatchResult

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.KindValidation, "could not read csv header")
	}
	cols, err := mapRosterColumns(header)
	if err != nil {
		return result, err
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{Line: line, Reason: err.Error()})
			continue
		}

		req, err := rosterRowToRequest(record, cols)
		if err == nil {
			_, err = s.Add(ctx, req)
		}
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{Line: line, Reason: err.Error()})
			continue
		}
		result.Succeeded++
	}

	s.logger.Sugar().Infow("roster import finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (s *RosterService) checkEmailPolicy(ctx context.Context, email, excludeID string) error {
	if !s.policy.EnforceUniqueEmail {
		return nil
	}
	taken, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return err
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("email %s already in use", email))
	}
	return nil
}

type rosterColumns struct {
	firstName, lastName, gradYear, email int
}

func mapRosterColumns(header []string) (rosterColumns, error) {
	cols := rosterColumns{firstName: -1, lastName: -1, gradYear: -1, email: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "first_name":
			cols.firstName = i
		case "last_name":
			cols.lastName = i
		case "grad_year":
			cols.gradYear = i
		case "email":
			cols.email = i
		}
	}
	if cols.firstName < 0 || cols.lastName < 0 || cols.gradYear < 0 || cols.email < 0 {
		return cols, appErrors.Clone(appErrors.ErrValidation, "csv header must contain first_name, last_name, grad_year, email")
	}
	return cols, nil
}

func rosterRowToRequest(record []string, cols rosterColumns) (AddStudentRequest, error) {
	var req AddStudentRequest
	max := cols.firstName
	for _, i := range []int{cols.lastName, cols.gradYear, cols.email} {
		if i > max {
			max = i
		}
	}
	if len(record) <= max {
		return req, fmt.Errorf("row has %d columns, expected at least %d", len(record), max+1)
	}
	year, err := strconv.Atoi(strings.TrimSpace(record[cols.gradYear]))
	if err != nil {
		return req, fmt.Errorf("invalid grad_year %q", record[cols.gradYear])
	}
	req.FirstName = record[cols.firstName]
	req.LastName = record[cols.lastName]
	req.GradYear = year
	req.Email = record[cols.email]
	return req, nil
}
