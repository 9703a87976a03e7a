// Package stats summarizes chore completion per household member.
package stats

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/model"
)

// Households resolves a household and its member records in join order.
// *store.HouseholdStore satisfies it.
type Households interface {
	GetByID(ctx context.Context, id string) (*model.Household, error)
	ListMembers(ctx context.Context, householdID string) ([]model.User, error)
}

// Chores lists a household's stored chores. *store.ChoreStore satisfies it.
type Chores interface {
	ListByHousehold(ctx context.Context, householdID string) ([]model.Chore, error)
}

type MemberStats struct {
	MemberID       string `json:"member_id"`
	Name           string `json:"name"`
	CompletedCount int    `json:"completed_count"`
	ActiveCount    int    `json:"active_count"`
}

type Aggregator struct {
	households Households
	chores     Chores
	now        func() time.Time
}

func NewAggregator(households Households, chores Chores) *Aggregator {
	return &Aggregator{households: households, chores: chores, now: time.Now}
}

// ComputeStats returns one entry per member, most completions first. Members
// with equal counts keep their join order. Chores assigned to someone who is
// no longer a member are not counted.
func (a *Aggregator) ComputeStats(ctx context.Context, householdID string) ([]MemberStats, error) {
	h, err := a.households.GetByID(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("get household", err)
	}
	if h == nil {
		return nil, apperr.NotFound("household %s", householdID)
	}

	members, err := a.households.ListMembers(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("list members", err)
	}
	stored, err := a.chores.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("list chores", err)
	}

	return Summarize(members, chore.WithStatus(stored, a.now())), nil
}

// Summarize counts completed and active chores for each member and orders
// the result by completed count, descending and stable.
func Summarize(members []model.User, chores []chore.ChoreWithStatus) []MemberStats {
	out := make([]MemberStats, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		out[i] = MemberStats{MemberID: m.ID, Name: m.Name}
		index[m.ID] = i
	}

	for _, c := range chores {
		i, ok := index[c.AssignedTo]
		if !ok {
			continue
		}
		switch {
		case c.Status == chore.StatusCompleted:
			out[i].CompletedCount++
		case c.Active():
			out[i].ActiveCount++
		}
	}

	slices.SortStableFunc(out, func(a, b MemberStats) int {
		return cmp.Compare(b.CompletedCount, a.CompletedCount)
	})
	return out
}
