// Package store implements SQLite-backed persistence for users, chores,
// rewards, redemptions, sessions and the points ledger.
package store

import (
	"database/sql"
	"time"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Stores are built on it so the same queries run standalone or inside an
// engine transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const dateLayout = "2006-01-02"

// formatDate renders a due date as the TEXT value stored in sqlite.
func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// formatTime renders a timestamp in the same "YYYY-MM-DD HH:MM:SS" form as
// sqlite's datetime('now'), so string comparisons in SQL stay correct.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.DateTime)
}
