package model

import "time"

type Reward struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Cost         int       `json:"cost"`
	Active       bool      `json:"is_active"`
	LimitPerWeek *int      `json:"limit_per_week,omitempty"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type RedemptionStatus string

const (
	RedemptionRequested RedemptionStatus = "REQUESTED"
	RedemptionApproved  RedemptionStatus = "APPROVED"
	RedemptionDenied    RedemptionStatus = "DENIED"
)

type Redemption struct {
	ID        int64            `json:"id"`
	RewardID  int64            `json:"reward_id"`
	UserID    int64            `json:"user_id"`
	Status    RedemptionStatus `json:"status"`
	Note      string           `json:"note"`
	HandledBy *int64           `json:"handled_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	DecidedAt *time.Time       `json:"decided_at,omitempty"`
}
