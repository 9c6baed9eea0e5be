package chore

import "chorebank/internal/model"

// transitions is the closed set of legal status changes. Anything not
// listed is rejected uniformly, regardless of who asks.
var transitions = map[model.ChoreStatus][]model.ChoreStatus{
	model.ChoreAssigned:    {model.ChoreDonePending},
	model.ChoreDonePending: {model.ChoreApproved, model.ChoreRejected},
	model.ChoreRejected:    {model.ChoreDonePending},
	model.ChoreApproved:    nil, // terminal
}

// CanTransition reports whether a chore may move from one status to another.
func CanTransition(from, to model.ChoreStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
