package store

import (
	"testing"
	"time"

	"chorebank/internal/database"
	"chorebank/internal/model"
)

func setupRewardTestDB(t *testing.T) (*RewardStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	parent, err := us.Create("parent", "Parent", model.RoleParent, "hash", "", false)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	kid, err := us.Create("kid", "Kid", model.RoleChild, "hash", "", false)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return NewRewardStore(db), parent.ID, kid.ID
}

func TestRewardCRUD(t *testing.T) {
	rs, parentID, _ := setupRewardTestDB(t)

	limit := 2
	r, err := rs.Create("Movie night", 50, true, &limit, parentID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if r.Cost != 50 || !r.Active || r.LimitPerWeek == nil || *r.LimitPerWeek != 2 {
		t.Errorf("unexpected reward %+v", r)
	}

	updated, err := rs.SetActive(r.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if updated.Active {
		t.Error("expected reward to be inactive")
	}

	missing, err := rs.GetByID(999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing reward, got %+v", missing)
	}
}

func TestRewardListActiveFirst(t *testing.T) {
	rs, parentID, _ := setupRewardTestDB(t)

	active, err := rs.Create("Active", 10, true, nil, parentID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	retired, err := rs.Create("Retired", 10, false, nil, parentID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	rewards, err := rs.List()
	if err != nil {
		t.Fatalf("list rewards: %v", err)
	}
	if len(rewards) != 2 {
		t.Fatalf("expected 2 rewards, got %d", len(rewards))
	}
	if rewards[0].ID != active.ID || rewards[1].ID != retired.ID {
		t.Errorf("expected active reward first, got %v then %v", rewards[0].Name, rewards[1].Name)
	}
}

func TestDecideRedemptionGuard(t *testing.T) {
	rs, parentID, kidID := setupRewardTestDB(t)

	r, err := rs.Create("Ice cream", 10, true, nil, parentID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	red, err := rs.CreateRedemption(r.ID, kidID)
	if err != nil {
		t.Fatalf("create redemption: %v", err)
	}
	if red.Status != model.RedemptionRequested || red.DecidedAt != nil {
		t.Errorf("unexpected new redemption %+v", red)
	}

	decidedAt := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	ok, err := rs.DecideRedemption(red.ID, model.RedemptionRequested, model.RedemptionApproved, "ok", parentID, decidedAt)
	if err != nil {
		t.Fatalf("decide redemption: %v", err)
	}
	if !ok {
		t.Fatal("expected first decision to win")
	}

	// The concurrent loser sees no matching row.
	ok, err = rs.DecideRedemption(red.ID, model.RedemptionRequested, model.RedemptionDenied, "too late", parentID, decidedAt)
	if err != nil {
		t.Fatalf("decide redemption: %v", err)
	}
	if ok {
		t.Error("expected second decision to lose")
	}

	got, err := rs.GetRedemptionByID(red.ID)
	if err != nil {
		t.Fatalf("get redemption: %v", err)
	}
	if got.Status != model.RedemptionApproved || got.HandledBy == nil || *got.HandledBy != parentID {
		t.Errorf("unexpected decided redemption %+v", got)
	}
	if got.DecidedAt == nil || !got.DecidedAt.Equal(decidedAt) {
		t.Errorf("decided_at = %v, want %v", got.DecidedAt, decidedAt)
	}
}

func TestCountApprovedSince(t *testing.T) {
	rs, parentID, kidID := setupRewardTestDB(t)

	r, err := rs.Create("Screen time", 10, true, nil, parentID)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	decide := func(status model.RedemptionStatus, decidedAt time.Time) {
		t.Helper()
		red, err := rs.CreateRedemption(r.ID, kidID)
		if err != nil {
			t.Fatalf("create redemption: %v", err)
		}
		if _, err := rs.DecideRedemption(red.ID, model.RedemptionRequested, status, "", parentID, decidedAt); err != nil {
			t.Fatalf("decide redemption: %v", err)
		}
	}

	weekStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	decide(model.RedemptionApproved, weekStart.Add(24*time.Hour))  // this week
	decide(model.RedemptionDenied, weekStart.Add(48*time.Hour))    // denied, ignored
	decide(model.RedemptionApproved, weekStart.Add(-1*time.Hour))  // last week

	n, err := rs.CountApprovedSince(kidID, r.ID, weekStart)
	if err != nil {
		t.Fatalf("count approved: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
