// Package ledger exposes read access to the points ledger and manual
// admin adjustments. Balances are always recomputed from the entry rows.
package ledger

import (
	"database/sql"
	"log/slog"
	"strings"

	"chorebank/internal/domain"
	"chorebank/internal/model"
	"chorebank/internal/policy"
	"chorebank/internal/store"
)

type Service struct {
	entries *store.LedgerStore
	users   *store.UserStore
	logger  *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		entries: store.NewLedgerStore(db),
		users:   store.NewUserStore(db),
		logger:  logger,
	}
}

// Statement is a user's ledger history with the recomputed balance.
type Statement struct {
	Entries []model.LedgerEntry `json:"entries"`
	Total   int                 `json:"total"`
}

// Get returns a user's statement. CHILD actors default to their own ledger
// and may not name anyone else. Parents and admins must name a user.
func (s *Service) Get(actor model.Actor, userID *int64) (*Statement, error) {
	var target int64
	switch actor.Role {
	case model.RoleChild:
		if userID != nil && *userID != actor.ID {
			return nil, domain.ErrForbidden
		}
		target = actor.ID
	case model.RoleParent, model.RoleAdmin:
		if userID == nil {
			return nil, domain.Validationf("userId is required")
		}
		target = *userID
	default:
		return nil, domain.ErrForbidden
	}
	if !policy.Allowed(actor.Role, policy.OpViewLedger, policy.Context{Self: target == actor.ID}) {
		return nil, domain.ErrForbidden
	}

	u, err := s.users.GetByID(target)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}

	entries, err := s.entries.ListByUser(target)
	if err != nil {
		return nil, err
	}
	total, err := s.entries.Balance(target)
	if err != nil {
		return nil, err
	}
	return &Statement{Entries: entries, Total: total}, nil
}

// Adjust appends a manual correction entry. Admin only; the delta may be
// negative but not zero.
func (s *Service) Adjust(actor model.Actor, userID int64, delta int, reason string) (*model.LedgerEntry, error) {
	if !policy.Allowed(actor.Role, policy.OpManageUsers, policy.Context{}) {
		return nil, domain.ErrForbidden
	}
	if delta == 0 {
		return nil, domain.Validationf("delta must be non-zero")
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		return nil, domain.Validationf("reason is required")
	}

	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}

	e, err := s.entries.Append(userID, delta, reason, model.LedgerRefAdminAdjust, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ledger adjusted", "user_id", userID, "delta", delta, "actor_id", actor.ID)
	return e, nil
}
