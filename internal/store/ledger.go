package store

import (
	"database/sql"
	"fmt"

	"chorebank/internal/model"
)

// LedgerStore is the append-only record of point movements. There are no
// update or delete methods on purpose: once written, an entry is a fact.
type LedgerStore struct {
	q Querier
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{q: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *LedgerStore) WithTx(tx *sql.Tx) *LedgerStore {
	return &LedgerStore{q: tx}
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var refID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.RefType, &refID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if refID.Valid {
		e.RefID = &refID.Int64
	}
	return &e, nil
}

const ledgerCols = `id, user_id, delta, reason, ref_type, ref_id, created_at`

func (s *LedgerStore) Append(userID int64, delta int, reason string, refType model.LedgerRef, refID *int64) (*model.LedgerEntry, error) {
	var rid sql.NullInt64
	if refID != nil {
		rid = sql.NullInt64{Int64: *refID, Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO ledger (user_id, delta, reason, ref_type, ref_id) VALUES (?, ?, ?, ?, ?)`,
		userID, delta, reason, refType, rid,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRow(`SELECT `+ledgerCols+` FROM ledger WHERE id = ?`, id)
	e, err := scanLedgerEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// Balance is the sum of a user's deltas. This is the only balance
// computation in the system; nothing caches it.
func (s *LedgerStore) Balance(userID int64) (int, error) {
	var total int
	err := s.q.QueryRow(
		`SELECT COALESCE(SUM(delta), 0) FROM ledger WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return total, nil
}

// ListByUser returns a user's entries, newest first.
func (s *LedgerStore) ListByUser(userID int64) ([]model.LedgerEntry, error) {
	rows, err := s.q.Query(
		`SELECT `+ledgerCols+` FROM ledger WHERE user_id = ? ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
