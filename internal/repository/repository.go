package repository

import (
	"strings"
)

// The modernc sqlite driver reports constraint failures as plain errors
// with stable message prefixes; these helpers are the single place that
// knowledge lives so raw driver errors never leak past the repositories.

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
