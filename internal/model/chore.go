package model

import "time"

type ChoreStatus string

const (
	ChoreAssigned    ChoreStatus = "ASSIGNED"
	ChoreDonePending ChoreStatus = "DONE_PENDING"
	ChoreApproved    ChoreStatus = "APPROVED"
	ChoreRejected    ChoreStatus = "REJECTED"
)

type Recurrence string

const (
	RecurrenceNone   Recurrence = "NONE"
	RecurrenceDaily  Recurrence = "DAILY"
	RecurrenceWeekly Recurrence = "WEEKLY"
)

// Valid reports whether rec is a known recurrence policy.
func (rec Recurrence) Valid() bool {
	switch rec {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly:
		return true
	}
	return false
}

type Chore struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Points      int         `json:"points"`
	Recurrence  Recurrence  `json:"recurrence"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Status      ChoreStatus `json:"status"`
	CreatedBy   int64       `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`

	AssigneeIDs []int64 `json:"assignee_ids"`
}

// ChoreEvent is one audit record of a status transition. FromStatus is nil
// for the creation event.
type ChoreEvent struct {
	ID         int64        `json:"id"`
	ChoreID    int64        `json:"chore_id"`
	FromStatus *ChoreStatus `json:"from_status,omitempty"`
	ToStatus   ChoreStatus  `json:"to_status"`
	ActorID    int64        `json:"actor_id"`
	Note       string       `json:"note"`
	CreatedAt  time.Time    `json:"created_at"`
}
