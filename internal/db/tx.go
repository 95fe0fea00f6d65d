// Package db holds the database/sql helpers shared by the sqlite stores.
package db

import (
	"context"
	"database/sql"
	"time"
)

// WithTx runs fn inside a transaction bound to ctx. The transaction is
// committed when fn returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// PositiveInt stores v as NULL unless it is above zero. Verse and range
// columns use NULL for "not set".
func PositiveInt(v int) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

// IntOrZero is the reverse of PositiveInt.
func IntOrZero(n sql.NullInt64) int {
	if !n.Valid {
		return 0
	}
	return int(n.Int64)
}

// UnixTime converts a stored unix timestamp, treating 0 as the zero time.
func UnixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
