package chore

import (
	"time"

	"github.com/dukerupert/choreboard/internal/model"
)

// Status is the status a reader sees. Overdue is derived from the clock and
// never stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// ChoreWithStatus is a stored chore with its derived status. The outer
// Status shadows the stored one when encoded.
type ChoreWithStatus struct {
	model.Chore
	Status Status `json:"status"`
}

// DeriveStatus reports overdue for a pending chore whose due time has
// passed. A chore due exactly now is still pending.
func DeriveStatus(c model.Chore, now time.Time) Status {
	if c.Status == model.ChoreStatusCompleted {
		return StatusCompleted
	}
	if now.After(c.DueBy) {
		return StatusOverdue
	}
	return StatusPending
}

// WithStatus derives the status of every chore at now, keeping order.
func WithStatus(chores []model.Chore, now time.Time) []ChoreWithStatus {
	out := make([]ChoreWithStatus, 0, len(chores))
	for _, c := range chores {
		out = append(out, ChoreWithStatus{Chore: c, Status: DeriveStatus(c, now)})
	}
	return out
}

// Active reports whether the chore still needs doing.
func (c ChoreWithStatus) Active() bool {
	return c.Status == StatusPending || c.Status == StatusOverdue
}

// Partition splits the chores that still need doing into those assigned to
// memberID and everyone else's. Completed chores are left out.
func Partition(chores []ChoreWithStatus, memberID string) (mine, others []ChoreWithStatus) {
	for _, c := range chores {
		if !c.Active() {
			continue
		}
		if c.AssignedTo == memberID {
			mine = append(mine, c)
		} else {
			others = append(others, c)
		}
	}
	return mine, others
}
