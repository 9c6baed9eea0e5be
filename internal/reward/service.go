// Package reward implements the reward catalog and the redemption flow:
// REQUESTED → {APPROVED, DENIED}, with spending checks against the points
// ledger and an optional per-week approval cap per reward.
package reward

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chorebank/internal/domain"
	"chorebank/internal/model"
	"chorebank/internal/policy"
	"chorebank/internal/store"
)

type Service struct {
	db      *sql.DB
	rewards *store.RewardStore
	ledger  *store.LedgerStore
	logger  *slog.Logger

	now func() time.Time
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		rewards: store.NewRewardStore(db),
		ledger:  store.NewLedgerStore(db),
		logger:  logger,
		now:     time.Now,
	}
}

type CreateInput struct {
	Name         string
	Cost         int
	LimitPerWeek *int
}

func (s *Service) CreateReward(actor model.Actor, in CreateInput) (*model.Reward, error) {
	if !policy.Allowed(actor.Role, policy.OpCreateReward, policy.Context{}) {
		return nil, domain.ErrForbidden
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Validationf("name is required")
	}
	if in.Cost <= 0 {
		return nil, domain.Validationf("cost must be positive")
	}
	if in.LimitPerWeek != nil && *in.LimitPerWeek <= 0 {
		return nil, domain.Validationf("weekly limit must be positive")
	}

	r, err := s.rewards.Create(in.Name, in.Cost, true, in.LimitPerWeek, actor.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reward created", "reward_id", r.ID, "cost", r.Cost)
	return r, nil
}

func (s *Service) ListRewards(actor model.Actor) ([]model.Reward, error) {
	if !actor.Role.Valid() {
		return nil, domain.ErrForbidden
	}
	return s.rewards.List()
}

func (s *Service) SetRewardActive(actor model.Actor, rewardID int64, active bool) error {
	if !policy.Allowed(actor.Role, policy.OpCreateReward, policy.Context{}) {
		return domain.ErrForbidden
	}
	r, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return err
	}
	if r == nil {
		return domain.ErrNotFound
	}
	if _, err := s.rewards.SetActive(rewardID, active); err != nil {
		return err
	}
	return nil
}

// Redeem requests a reward for the acting child. The request only lands if
// the child can afford it right now and the reward's weekly approval cap
// has room; nothing is recorded otherwise. Points are not held back until a
// parent approves.
func (s *Service) Redeem(actor model.Actor, rewardID int64) (*model.Redemption, error) {
	if !policy.Allowed(actor.Role, policy.OpRedeemReward, policy.Context{Self: true}) {
		return nil, domain.ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rewards := s.rewards.WithTx(tx)
	r, err := rewards.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	if !r.Active {
		return nil, domain.Validationf("reward %q is not active", r.Name)
	}

	balance, err := s.ledger.WithTx(tx).Balance(actor.ID)
	if err != nil {
		return nil, err
	}
	if balance < r.Cost {
		return nil, domain.ErrInsufficientBalance
	}

	if r.LimitPerWeek != nil {
		n, err := rewards.CountApprovedSince(actor.ID, rewardID, startOfISOWeek(s.now()))
		if err != nil {
			return nil, err
		}
		if n >= *r.LimitPerWeek {
			return nil, domain.ErrLimitExceeded
		}
	}

	red, err := rewards.CreateRedemption(rewardID, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("redemption requested", "redemption_id", red.ID, "reward_id", rewardID, "user_id", actor.ID)
	return red, nil
}

// ApproveRedemption finalizes a request: status flips to APPROVED and the
// cost is debited from the child's ledger. The balance is checked again
// inside the transaction since it may have dropped since the request.
func (s *Service) ApproveRedemption(actor model.Actor, redemptionID int64, note string) (*model.Redemption, error) {
	if !policy.Allowed(actor.Role, policy.OpApproveRedemption, policy.Context{}) {
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

	rewards := s.rewards.WithTx(tx)
	red, err := rewards.GetRedemptionByID(redemptionID)
	if err != nil {
		return nil, err
	}
	if red == nil {
		return nil, domain.ErrNotFound
	}
	r, err := rewards.GetByID(red.RewardID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}

	ledger := s.ledger.WithTx(tx)
	balance, err := ledger.Balance(red.UserID)
	if err != nil {
		return nil, err
	}
	if balance < r.Cost {
		return nil, domain.ErrInsufficientBalance
	}

	decidedAt := s.now()
	ok, err := rewards.DecideRedemption(redemptionID, model.RedemptionRequested, model.RedemptionApproved, note, actor.ID, decidedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	reason := fmt.Sprintf("reward redeemed: %s", r.Name)
	if _, err := ledger.Append(red.UserID, -r.Cost, reason, model.LedgerRefReward, &r.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("redemption approved", "redemption_id", redemptionID, "actor_id", actor.ID, "cost", r.Cost)
	red.Status = model.RedemptionApproved
	red.Note = note
	red.HandledBy = &actor.ID
	red.DecidedAt = &decidedAt
	return red, nil
}

// DenyRedemption closes a request without touching the ledger.
func (s *Service) DenyRedemption(actor model.Actor, redemptionID int64, note string) (*model.Redemption, error) {
	if !policy.Allowed(actor.Role, policy.OpDenyRedemption, policy.Context{}) {
		return nil, domain.ErrForbidden
	}
	if note = strings.TrimSpace(note); note == "" {
		note = "denied"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rewards := s.rewards.WithTx(tx)
	red, err := rewards.GetRedemptionByID(redemptionID)
	if err != nil {
		return nil, err
	}
	if red == nil {
		return nil, domain.ErrNotFound
	}

	decidedAt := s.now()
	ok, err := rewards.DecideRedemption(redemptionID, model.RedemptionRequested, model.RedemptionDenied, note, actor.ID, decidedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	red.Status = model.RedemptionDenied
	red.Note = note
	red.HandledBy = &actor.ID
	red.DecidedAt = &decidedAt
	return red, nil
}

// ListRedemptions returns redemption requests. CHILD actors always get
// their own; parents and admins may filter by user or see everything.
func (s *Service) ListRedemptions(actor model.Actor, userID *int64) ([]model.Redemption, error) {
	if actor.Role == model.RoleChild {
		if userID != nil && *userID != actor.ID {
			return nil, domain.ErrForbidden
		}
		return s.rewards.ListRedemptions(&actor.ID)
	}
	if !actor.Role.Valid() {
		return nil, domain.ErrForbidden
	}
	return s.rewards.ListRedemptions(userID)
}

// startOfISOWeek truncates t to Monday 00:00 UTC of its week. Weekly
// redemption caps count approvals from this boundary, not a rolling window.
func startOfISOWeek(t time.Time) time.Time {
	t = t.UTC()
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}
