package model

import "time"

// LedgerRef identifies what caused a ledger entry.
type LedgerRef string

const (
	LedgerRefChore       LedgerRef = "CHORE"
	LedgerRefReward      LedgerRef = "REWARD"
	LedgerRefAdminAdjust LedgerRef = "ADMIN_ADJUST"
)

// LedgerEntry is one immutable signed point movement for one user.
// Entries are append-only; a user's balance is always the sum of their
// deltas, never a stored value.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	RefType   LedgerRef `json:"ref_type"`
	RefID     *int64    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
