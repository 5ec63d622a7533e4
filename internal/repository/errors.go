// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate it into a 404 so that
// other providers' records are not disclosed.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// existing state: a duplicate unique value, or a category still
// referenced by listings.
var ErrConflict = errors.New("conflict")

// isDuplicate recognises unique-key violations from MySQL (1062) and
// SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}

// isForeignKey recognises foreign-key violations from MySQL (1451/1452)
// and SQLite.
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1451") || strings.Contains(msg, "1452") ||
		strings.Contains(msg, "foreign key constraint failed")
}

// likeArg wraps a user search term for a case-insensitive LIKE.
func likeArg(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
