// Package recurrence derives the next instance of a recurring chore. It is
// pure: it builds a draft and leaves persistence to the caller's
// transaction.
package recurrence

import (
	"time"

	"chorebank/internal/model"
)

// NextDueDate returns the successor due date for the given recurrence. When
// the current due date is unset, today is used as the base. Returns nil for
// non-recurring chores.
func NextDueDate(due *time.Time, rec model.Recurrence, today time.Time) *time.Time {
	var days int
	switch rec {
	case model.RecurrenceDaily:
		days = 1
	case model.RecurrenceWeekly:
		days = 7
	default:
		return nil
	}

	base := startOfDay(today)
	if due != nil {
		base = startOfDay(*due)
	}
	next := base.AddDate(0, 0, days)
	return &next
}

// Successor builds the draft of the chore instance that follows c after an
// approval on the given day. The draft keeps c's title, description, points,
// recurrence and assignees, starts over in ASSIGNED, and carries the next
// due date so listings hide it until that day arrives. ok is false when c
// does not recur.
func Successor(c model.Chore, today time.Time) (model.Chore, bool) {
	next := NextDueDate(c.DueDate, c.Recurrence, today)
	if next == nil {
		return model.Chore{}, false
	}

	draft := model.Chore{
		Title:       c.Title,
		Description: c.Description,
		Points:      c.Points,
		Recurrence:  c.Recurrence,
		DueDate:     next,
		Status:      model.ChoreAssigned,
		CreatedBy:   c.CreatedBy,
		AssigneeIDs: append([]int64(nil), c.AssigneeIDs...),
	}
	return draft, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
