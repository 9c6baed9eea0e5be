package chore

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"chorebank/internal/database"
	"chorebank/internal/domain"
	"chorebank/internal/model"
	"chorebank/internal/store"
)

func setupService(t *testing.T) (*Service, *testUsers) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) }

	users := store.NewUserStore(db)
	parent, err := users.Create("parent", "Parent", model.RoleParent, "hash", "", false)
	if err != nil {
		t.Fatalf("failed to create parent: %v", err)
	}
	kidA, err := users.Create("kid-a", "Kid A", model.RoleChild, "hash", "", false)
	if err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	kidB, err := users.Create("kid-b", "Kid B", model.RoleChild, "hash", "", false)
	if err != nil {
		t.Fatalf("failed to create child: %v", err)
	}
	return svc, &testUsers{parent: *parent, kidA: *kidA, kidB: *kidB}
}

type testUsers struct {
	parent, kidA, kidB model.User
}

func (u *testUsers) parentActor() model.Actor { return model.Actor{ID: u.parent.ID, Role: u.parent.Role} }
func (u *testUsers) kidAActor() model.Actor   { return model.Actor{ID: u.kidA.ID, Role: u.kidA.Role} }
func (u *testUsers) kidBActor() model.Actor   { return model.Actor{ID: u.kidB.ID, Role: u.kidB.Role} }

func mustCreate(t *testing.T, svc *Service, actor model.Actor, in CreateInput) *model.Chore {
	t.Helper()
	c, err := svc.Create(actor, in)
	if err != nil {
		t.Fatalf("failed to create chore: %v", err)
	}
	return c
}

func TestCreateValidation(t *testing.T) {
	svc, u := setupService(t)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"empty title", CreateInput{Title: "  ", Points: 5, AssigneeIDs: []int64{u.kidA.ID}}},
		{"zero points", CreateInput{Title: "Dishes", Points: 0, AssigneeIDs: []int64{u.kidA.ID}}},
		{"negative points", CreateInput{Title: "Dishes", Points: -3, AssigneeIDs: []int64{u.kidA.ID}}},
		{"no assignees", CreateInput{Title: "Dishes", Points: 5}},
		{"unknown assignee", CreateInput{Title: "Dishes", Points: 5, AssigneeIDs: []int64{999}}},
		{"parent assignee", CreateInput{Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.parent.ID}}},
		{"bad recurrence", CreateInput{Title: "Dishes", Points: 5, Recurrence: "MONTHLY", AssigneeIDs: []int64{u.kidA.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(u.parentActor(), tt.in); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateForbiddenForChild(t *testing.T) {
	svc, u := setupService(t)

	_, err := svc.Create(u.kidAActor(), CreateInput{Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID}})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 10, AssigneeIDs: []int64{u.kidA.ID},
	})
	if c.Status != model.ChoreAssigned {
		t.Fatalf("expected ASSIGNED, got %s", c.Status)
	}

	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Approve(u.parentActor(), c.ID, ""); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	got, events, err := svc.Get(u.parentActor(), c.ID)
	if err != nil {
		t.Fatalf("failed to get chore: %v", err)
	}
	if got.Status != model.ChoreApproved {
		t.Errorf("expected APPROVED, got %s", got.Status)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestApproveCreditsEveryAssignee(t *testing.T) {
	svc, u := setupService(t)
	ledger := store.NewLedgerStore(svc.db)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Yard work", Points: 10, AssigneeIDs: []int64{u.kidA.ID, u.kidB.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Approve(u.parentActor(), c.ID, "nice"); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	for _, uid := range []int64{u.kidA.ID, u.kidB.ID} {
		bal, err := ledger.Balance(uid)
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if bal != 10 {
			t.Errorf("user %d: expected balance 10, got %d", uid, bal)
		}
	}
}

func TestApproveRequiresDonePending(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})

	if _, err := svc.Approve(u.parentActor(), c.ID, ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}

	// And no points were granted by the failed attempt.
	bal, err := store.NewLedgerStore(svc.db).Balance(u.kidA.ID)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if bal != 0 {
		t.Errorf("expected balance 0 after failed approval, got %d", bal)
	}
}

func TestApproveIsTerminal(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Approve(u.parentActor(), c.ID, ""); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	if _, err := svc.Approve(u.parentActor(), c.ID, ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("double approval: expected invalid transition, got %v", err)
	}
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("mark done after approval: expected invalid transition, got %v", err)
	}
}

func TestRejectAllowsRetry(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Reject(u.parentActor(), c.ID, "still dirty"); err != nil {
		t.Fatalf("failed to reject: %v", err)
	}

	got, err := svc.MarkDone(u.kidAActor(), c.ID)
	if err != nil {
		t.Fatalf("failed to retry after rejection: %v", err)
	}
	if got.Status != model.ChoreDonePending {
		t.Errorf("expected DONE_PENDING after retry, got %s", got.Status)
	}
}

func TestMarkDonePermissions(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})

	if _, err := svc.MarkDone(u.parentActor(), c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("parent mark done: expected forbidden, got %v", err)
	}
	if _, err := svc.MarkDone(u.kidBActor(), c.ID); !errors.Is(err, domain.ErrNotAssignee) {
		t.Errorf("non-assignee mark done: expected not-assignee, got %v", err)
	}
	if _, err := svc.MarkDone(u.kidAActor(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing chore: expected not found, got %v", err)
	}
}

func TestChildGetRestrictedToOwnChores(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Dishes", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})

	if _, _, err := svc.Get(u.kidBActor(), c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, _, err := svc.Get(u.kidAActor(), c.ID); err != nil {
		t.Errorf("assignee get: unexpected error %v", err)
	}
}

func TestApproveSchedulesRecurringSuccessor(t *testing.T) {
	svc, u := setupService(t)

	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "Take out trash", Points: 5, Recurrence: model.RecurrenceWeekly,
		DueDate: &due, AssigneeIDs: []int64{u.kidA.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Approve(u.parentActor(), c.ID, ""); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	// The successor exists but is dated a week out, so the default child
	// listing (today = 2024-01-01) must not show it yet.
	visible, err := svc.List(u.kidAActor(), nil, false)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	for _, v := range visible {
		if v.ID != c.ID {
			t.Errorf("successor chore %d leaked into default listing", v.ID)
		}
	}

	all, err := svc.List(u.parentActor(), nil, true)
	if err != nil {
		t.Fatalf("failed to list all: %v", err)
	}
	var successor *model.Chore
	for i := range all {
		if all[i].ID != c.ID {
			successor = &all[i]
		}
	}
	if successor == nil {
		t.Fatal("expected a successor chore to exist")
	}
	if successor.Status != model.ChoreAssigned {
		t.Errorf("expected successor in ASSIGNED, got %s", successor.Status)
	}
	if successor.DueDate == nil || !successor.DueDate.Equal(due.AddDate(0, 0, 7)) {
		t.Errorf("expected successor due 2024-01-08, got %v", successor.DueDate)
	}
	if len(successor.AssigneeIDs) != 1 || successor.AssigneeIDs[0] != u.kidA.ID {
		t.Errorf("expected successor assigned to kid A, got %v", successor.AssigneeIDs)
	}
}

func TestNonRecurringChoreHasNoSuccessor(t *testing.T) {
	svc, u := setupService(t)

	c := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "One-off", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), c.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}
	if _, err := svc.Approve(u.parentActor(), c.ID, ""); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	all, err := svc.List(u.parentActor(), nil, true)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 chore, got %d", len(all))
	}
}

func TestListStatusFilterAndChildScope(t *testing.T) {
	svc, u := setupService(t)

	a := mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "For A", Points: 5, AssigneeIDs: []int64{u.kidA.ID},
	})
	mustCreate(t, svc, u.parentActor(), CreateInput{
		Title: "For B", Points: 5, AssigneeIDs: []int64{u.kidB.ID},
	})
	if _, err := svc.MarkDone(u.kidAActor(), a.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}

	own, err := svc.List(u.kidAActor(), nil, false)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(own) != 1 || own[0].ID != a.ID {
		t.Errorf("expected child to see only own chore, got %+v", own)
	}

	pending := model.ChoreDonePending
	filtered, err := svc.List(u.parentActor(), &pending, false)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != a.ID {
		t.Errorf("expected one DONE_PENDING chore, got %+v", filtered)
	}

	queue, err := svc.PendingApproval(u.parentActor())
	if err != nil {
		t.Fatalf("failed to list approvals: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != a.ID {
		t.Errorf("expected approval queue of one, got %+v", queue)
	}
	if _, err := svc.PendingApproval(u.kidAActor()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("child approval queue: expected forbidden, got %v", err)
	}
}
