package store

import (
	"testing"

	"chorebank/internal/database"
	"chorebank/internal/model"
)

func setupLedgerTestDB(t *testing.T) (*LedgerStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kid, err := NewUserStore(db).Create("kid", "Kid", model.RoleChild, "hash", "", false)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return NewLedgerStore(db), kid.ID
}

func TestBalanceIsSumOfDeltas(t *testing.T) {
	ls, kidID := setupLedgerTestDB(t)

	bal, err := ls.Balance(kidID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 0 {
		t.Errorf("empty ledger balance = %d, want 0", bal)
	}

	refID := int64(1)
	deltas := []int{10, 10, -25, 7}
	for _, d := range deltas {
		if _, err := ls.Append(kidID, d, "test entry", model.LedgerRefChore, &refID); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	bal, err = ls.Balance(kidID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 2 {
		t.Errorf("balance = %d, want 2", bal)
	}

	// Balances never leak across users.
	other, err := ls.Balance(999)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if other != 0 {
		t.Errorf("unrelated user balance = %d, want 0", other)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	ls, kidID := setupLedgerTestDB(t)

	if _, err := ls.Append(kidID, 10, "first", model.LedgerRefAdminAdjust, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := ls.Append(kidID, -4, "second", model.LedgerRefReward, nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := ls.ListByUser(kidID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Reason != "second" || entries[0].Delta != -4 {
		t.Errorf("unexpected newest entry %+v", entries[0])
	}
	if entries[1].RefType != model.LedgerRefAdminAdjust {
		t.Errorf("unexpected ref type %s", entries[1].RefType)
	}
	// The stored value must match the schema's ref_type enum.
	if string(entries[1].RefType) != "ADMIN_ADJUST" {
		t.Errorf("ref type = %q, want ADMIN_ADJUST", entries[1].RefType)
	}
}
