// Package chore implements the chore lifecycle engine: creation, the
// ASSIGNED → DONE_PENDING → {APPROVED, REJECTED} state machine, approval
// crediting via the points ledger, and recurring successor creation.
package chore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chorebank/internal/domain"
	"chorebank/internal/model"
	"chorebank/internal/policy"
	"chorebank/internal/recurrence"
	"chorebank/internal/store"
)

type Service struct {
	db     *sql.DB
	chores *store.ChoreStore
	users  *store.UserStore
	logger *slog.Logger

	// now is swapped out in tests to pin recurrence and visibility math.
	now func() time.Time
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		chores: store.NewChoreStore(db),
		users:  store.NewUserStore(db),
		logger: logger,
		now:    time.Now,
	}
}

type CreateInput struct {
	Title       string
	Description string
	Points      int
	Recurrence  model.Recurrence
	DueDate     *time.Time
	AssigneeIDs []int64
}

// Create inserts a new chore in ASSIGNED with its assignment set and the
// creation audit event, all in one transaction.
func (s *Service) Create(actor model.Actor, in CreateInput) (*model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpCreateChore, policy.Context{}) {
		return nil, domain.ErrForbidden
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, domain.Validationf("title is required")
	}
	if in.Points <= 0 {
		return nil, domain.Validationf("points must be positive")
	}
	if in.Recurrence == "" {
		in.Recurrence = model.RecurrenceNone
	}
	if !in.Recurrence.Valid() {
		return nil, domain.Validationf("unknown recurrence %q", in.Recurrence)
	}
	assignees := dedupe(in.AssigneeIDs)
	if len(assignees) == 0 {
		return nil, domain.Validationf("at least one assignee is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	users := s.users.WithTx(tx)
	for _, uid := range assignees {
		u, err := users.GetByID(uid)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, domain.Validationf("unknown assignee %d", uid)
		}
		if u.Role != model.RoleChild || !u.Active {
			return nil, domain.Validationf("assignee %d must be an active child", uid)
		}
	}

	chores := s.chores.WithTx(tx)
	c, err := chores.Create(in.Title, strings.TrimSpace(in.Description), in.Points, in.Recurrence, in.DueDate, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := chores.AddAssignees(c.ID, assignees); err != nil {
		return nil, err
	}
	if err := chores.AppendEvent(c.ID, nil, model.ChoreAssigned, actor.ID, "chore created"); err != nil {
		return nil, err
	}
	c.AssigneeIDs = assignees

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("chore created", "chore_id", c.ID, "points", c.Points, "assignees", len(assignees))
	return c, nil
}

// Get returns a chore with its transition history. CHILD actors may only
// see chores they are assigned to.
func (s *Service) Get(actor model.Actor, choreID int64) (*model.Chore, []model.ChoreEvent, error) {
	c, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, domain.ErrNotFound
	}
	if actor.Role == model.RoleChild && !contains(c.AssigneeIDs, actor.ID) {
		return nil, nil, domain.ErrForbidden
	}

	events, err := s.chores.ListEvents(choreID)
	if err != nil {
		return nil, nil, err
	}
	return c, events, nil
}

// List returns chores by status. CHILD actors see only their own
// assignments. Chores whose due date is still in the future are hidden
// unless includeUpcoming is set (and only parents and admins may set it).
func (s *Service) List(actor model.Actor, status *model.ChoreStatus, includeUpcoming bool) ([]model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpViewChores, policy.Context{}) {
		return nil, domain.ErrForbidden
	}

	f := store.ListFilter{Status: status}
	if actor.Role == model.RoleChild {
		f.AssigneeID = &actor.ID
		includeUpcoming = false
	}
	if !includeUpcoming {
		today := s.now()
		f.VisibleOn = &today
	}
	return s.chores.List(f)
}

// PendingApproval returns the queue of chores awaiting a parent decision.
func (s *Service) PendingApproval(actor model.Actor) ([]model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpApproveChore, policy.Context{}) {
		return nil, domain.ErrForbidden
	}
	return s.chores.ListPendingApproval()
}

// MarkDone moves a chore to DONE_PENDING. Only an assigned child may do it,
// and only from ASSIGNED or REJECTED.
func (s *Service) MarkDone(actor model.Actor, choreID int64) (*model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpMarkDone, policy.Context{}) {
		return nil, domain.ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	chores := s.chores.WithTx(tx)
	c, err := chores.GetByID(choreID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	if !contains(c.AssigneeIDs, actor.ID) {
		return nil, domain.ErrNotAssignee
	}
	if !CanTransition(c.Status, model.ChoreDonePending) {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := chores.UpdateStatus(choreID, c.Status, model.ChoreDonePending)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race: the status changed after we read it.
		return nil, domain.ErrInvalidTransition
	}
	from := c.Status
	if err := chores.AppendEvent(choreID, &from, model.ChoreDonePending, actor.ID, "marked done"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	c.Status = model.ChoreDonePending
	return c, nil
}

// Approve finishes a DONE_PENDING chore: status flips to APPROVED, every
// assignee is credited the chore's full point value, and a recurring chore
// gets its successor instance. One transaction; all or nothing.
func (s *Service) Approve(actor model.Actor, choreID int64, note string) (*model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpApproveChore, policy.Context{}) {
		return nil, domain.ErrForbidden
	}
	if note = strings.TrimSpace(note); note == "" {
		note = "approved"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	chores := s.chores.WithTx(tx)
	c, err := chores.GetByID(choreID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}

	ok, err := chores.UpdateStatus(choreID, model.ChoreDonePending, model.ChoreApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	from := model.ChoreDonePending
	if err := chores.AppendEvent(choreID, &from, model.ChoreApproved, actor.ID, note); err != nil {
		return nil, err
	}

	ledger := store.NewLedgerStore(s.db).WithTx(tx)
	for _, uid := range c.AssigneeIDs {
		reason := fmt.Sprintf("chore approved: %s", c.Title)
		if _, err := ledger.Append(uid, c.Points, reason, model.LedgerRefChore, &choreID); err != nil {
			return nil, err
		}
	}

	if draft, recurs := recurrence.Successor(*c, s.now()); recurs {
		next, err := chores.Create(draft.Title, draft.Description, draft.Points, draft.Recurrence, draft.DueDate, draft.CreatedBy)
		if err != nil {
			return nil, fmt.Errorf("create successor: %w", err)
		}
		if err := chores.AddAssignees(next.ID, draft.AssigneeIDs); err != nil {
			return nil, err
		}
		if err := chores.AppendEvent(next.ID, nil, model.ChoreAssigned, draft.CreatedBy, "recurring chore scheduled"); err != nil {
			return nil, err
		}
		s.logger.Info("recurrence scheduled", "chore_id", choreID, "successor_id", next.ID, "due", draft.DueDate)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("chore approved", "chore_id", choreID, "actor_id", actor.ID, "points", c.Points)
	c.Status = model.ChoreApproved
	return c, nil
}

// Reject sends a DONE_PENDING chore back for another attempt. No ledger
// effect.
func (s *Service) Reject(actor model.Actor, choreID int64, note string) (*model.Chore, error) {
	if !policy.Allowed(actor.Role, policy.OpRejectChore, policy.Context{}) {
		return nil, domain.ErrForbidden
	}
	if note = strings.TrimSpace(note); note == "" {
		note = "rejected"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	chores := s.chores.WithTx(tx)
	c, err := chores.GetByID(choreID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}

	ok, err := chores.UpdateStatus(choreID, model.ChoreDonePending, model.ChoreRejected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	from := model.ChoreDonePending
	if err := chores.AppendEvent(choreID, &from, model.ChoreRejected, actor.ID, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	c.Status = model.ChoreRejected
	return c, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
