package models

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Student is a member tracked for attendance. The student_id is immutable
// once assigned and doubles as the payload of the member's QR code.
type Student struct {
	StudentID     string `db:"student_id" json:"student_id"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`
	GradYear      int    `db:"grad_year" json:"grad_year"`
	Email         string `db:"email" json:"email"`
	DeactivatedOn *Date  `db:"deactivated_on" json:"deactivated_on"`
}

// Active reports whether the student has not been soft-deleted.
func (s Student) Active() bool {
	return s.DeactivatedOn == nil
}

// FullName returns "First Last" for display.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

var (
	// underscorePattern collapses whitespace and dashes to an underscore.
	underscorePattern = regexp.MustCompile(`[\s\-]+`)
	// removePattern strips punctuation from names.
	removePattern = regexp.MustCompile(`[.!?;,:']+`)
)

func cleanName(name string) string {
	name = removePattern.ReplaceAllString(name, "")
	return underscorePattern.ReplaceAllString(name, "_")
}

// NewStudentID derives a human-readable identifier of the form
// "{last}-{first}-{gradYear}-{rand:03}" with a random suffix in 1..999.
// The suffix keeps same-name collisions unlikely but not impossible, so
// callers must verify the ID is unused before committing it and retry with
// a fresh suffix on collision.
func NewStudentID(firstName, lastName string, gradYear int) string {
	first := strings.ToLower(strings.TrimSpace(cleanName(firstName)))
	last := strings.ToLower(strings.TrimSpace(cleanName(lastName)))
	return fmt.Sprintf("%s-%s-%d-%03d", last, first, gradYear, rand.Intn(999)+1)
}
