// Package policy is the role-gated authorization predicate consulted before
// every mutating operation. It is pure: no store access, no side effects.
package policy

import "chorebank/internal/model"

type Operation string

const (
	OpCreateChore       Operation = "chore.create"
	OpViewChores        Operation = "chore.view"
	OpMarkDone          Operation = "chore.mark_done"
	OpApproveChore      Operation = "chore.approve"
	OpRejectChore       Operation = "chore.reject"
	OpCreateReward      Operation = "reward.create"
	OpRedeemReward      Operation = "reward.redeem"
	OpApproveRedemption Operation = "redemption.approve"
	OpDenyRedemption    Operation = "redemption.deny"
	OpViewLedger        Operation = "ledger.view"
	OpManageUsers       Operation = "user.manage"
)

// Context carries the actor's relationship to the target entity. Only the
// fields relevant to the operation need to be set.
type Context struct {
	// Self is true when the target of the operation is the actor's own
	// data (own ledger, redemption for self).
	Self bool
}

// Allowed reports whether role may perform op. Whether a CHILD actor is
// actually assigned to a specific chore is checked by the chore engine
// (that failure is ErrNotAssignee, not a policy denial).
func Allowed(role model.Role, op Operation, ctx Context) bool {
	parental := role == model.RoleParent || role == model.RoleAdmin

	switch op {
	case OpMarkDone:
		return role == model.RoleChild
	case OpRedeemReward:
		return role == model.RoleChild && ctx.Self
	case OpCreateChore, OpApproveChore, OpRejectChore,
		OpCreateReward, OpApproveRedemption, OpDenyRedemption:
		return parental
	case OpViewChores:
		return role.Valid()
	case OpViewLedger:
		if role == model.RoleChild {
			return ctx.Self
		}
		return parental
	case OpManageUsers:
		return role == model.RoleAdmin
	}
	return false
}
