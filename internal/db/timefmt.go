package db

import (
	"database/sql"
	"time"
)

// TimeLayout is fixed width so that text comparison in SQL orders timestamps
// chronologically. The expiry sweep depends on this.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// TimePrecision is the finest resolution TimeLayout keeps. Clocks stamping
// records truncate to it so stored and in-memory values compare equal.
const TimePrecision = time.Microsecond

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime. RFC 3339 is accepted for
// rows written by other tools.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// NullTime formats an optional timestamp for a nullable column.
func NullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseNullTime is the inverse of NullTime.
func ParseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
