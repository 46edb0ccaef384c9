package repository

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is wrapped by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is wrapped by inserts that violate a primary key or
	// unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// insertErr wraps an insert failure, mapping constraint violations to
// ErrDuplicateKey.
func insertErr(what string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("inserting %s: %w: %v", what, ErrDuplicateKey, err)
	}
	return fmt.Errorf("inserting %s: %w", what, err)
}
