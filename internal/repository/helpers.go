package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", field, err)
	}
	return d, nil
}

func parseNullDecimal(field string, ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := parseDecimal(field, ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// timestamps parses the created_at/updated_at pair shared by every store.
func timestamps(created, updated string) (time.Time, time.Time, error) {
	c, err := db.ParseTime(created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u, err := db.ParseTime(updated)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, u, nil
}

func parseExpiry(ns sql.NullString) (*time.Time, error) {
	t, err := db.ParseNullTime(ns)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// collect drains rows through scan, closing rows when done.
func collect[T any](rows *sql.Rows, what string, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", what, err)
	}
	return out, nil
}
