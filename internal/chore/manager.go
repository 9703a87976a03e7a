// Package chore tracks household chores from creation to completion. Whether
// a chore is overdue is decided when it is read, from the caller's clock.
package chore

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/model"
)

// Store persists chores. *store.ChoreStore satisfies it.
type Store interface {
	Create(ctx context.Context, c model.Chore) (*model.Chore, error)
	GetByID(ctx context.Context, id string) (*model.Chore, error)
	ListByHousehold(ctx context.Context, householdID string) ([]model.Chore, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
}

// Households resolves households and their members. *store.HouseholdStore
// satisfies it.
type Households interface {
	GetByID(ctx context.Context, id string) (*model.Household, error)
}

// NewChore is the input for creating a chore. An empty AssignedTo hands the
// chore to the member with the fewest active chores.
type NewChore struct {
	Type        model.ChoreType `json:"type"`
	AssignedTo  string          `json:"assigned_to"`
	DueBy       time.Time       `json:"due_by"`
	TriggeredBy model.Source    `json:"-"`
}

type Manager struct {
	chores     Store
	households Households
	logger     *slog.Logger
	now        func() time.Time
}

func NewManager(chores Store, households Households, logger *slog.Logger) *Manager {
	return &Manager{
		chores:     chores,
		households: households,
		logger:     logger.With("component", "chore"),
		now:        time.Now,
	}
}

// ListForHousehold returns the household's chores ordered by due time, each
// with its status derived at the current time.
func (m *Manager) ListForHousehold(ctx context.Context, householdID string) ([]ChoreWithStatus, error) {
	if _, err := m.household(ctx, householdID); err != nil {
		return nil, err
	}
	chores, err := m.chores.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("list chores", err)
	}
	return WithStatus(chores, m.now()), nil
}

// Complete marks the chore completed. Completing an already completed chore
// succeeds and changes nothing. Any caller may complete any chore.
func (m *Manager) Complete(ctx context.Context, choreID string) (*ChoreWithStatus, error) {
	found, err := m.chores.MarkCompleted(ctx, choreID, m.now())
	if err != nil {
		return nil, apperr.Unavailable("complete chore", err)
	}
	if !found {
		return nil, apperr.NotFound("chore %s", choreID)
	}

	c, err := m.chores.GetByID(ctx, choreID)
	if err != nil {
		return nil, apperr.Unavailable("get chore", err)
	}
	if c == nil {
		return nil, apperr.NotFound("chore %s", choreID)
	}

	m.logger.Info("chore completed", "chore_id", c.ID, "household_id", c.HouseholdID)
	return &ChoreWithStatus{Chore: *c, Status: DeriveStatus(*c, m.now())}, nil
}

// Create adds a pending chore to the household.
func (m *Manager) Create(ctx context.Context, householdID string, in NewChore) (*ChoreWithStatus, error) {
	if !in.Type.Valid() {
		return nil, apperr.Invalid("unknown chore type %q", in.Type)
	}
	if !in.TriggeredBy.Valid() {
		return nil, apperr.Invalid("unknown chore source %q", in.TriggeredBy)
	}
	if in.DueBy.IsZero() {
		return nil, apperr.Invalid("due_by is required")
	}

	h, err := m.household(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if len(h.Members) == 0 {
		return nil, apperr.Invalid("household %s has no members to assign", householdID)
	}

	assignee := in.AssignedTo
	if assignee == "" {
		existing, err := m.chores.ListByHousehold(ctx, householdID)
		if err != nil {
			return nil, apperr.Unavailable("list chores", err)
		}
		assignee = leastLoaded(h.Members, WithStatus(existing, m.now()))
	} else if !isMember(h, assignee) {
		return nil, apperr.Invalid("%s is not a member of household %s", assignee, householdID)
	}

	now := m.now()
	c, err := m.chores.Create(ctx, model.Chore{
		HouseholdID: householdID,
		Type:        in.Type,
		AssignedTo:  assignee,
		DueBy:       in.DueBy,
		TriggeredBy: in.TriggeredBy,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, apperr.Unavailable("create chore", err)
	}

	m.logger.Info("chore created",
		"chore_id", c.ID, "household_id", householdID,
		"type", c.Type, "assigned_to", c.AssignedTo, "source", c.TriggeredBy,
	)
	return &ChoreWithStatus{Chore: *c, Status: DeriveStatus(*c, now)}, nil
}

func (m *Manager) household(ctx context.Context, householdID string) (*model.Household, error) {
	h, err := m.households.GetByID(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("get household", err)
	}
	if h == nil {
		return nil, apperr.NotFound("household %s", householdID)
	}
	return h, nil
}

func isMember(h *model.Household, userID string) bool {
	for _, id := range h.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// leastLoaded picks the member with the fewest active chores, earliest
// joiner first on ties.
func leastLoaded(members []string, chores []ChoreWithStatus) string {
	load := make(map[string]int, len(members))
	for _, c := range chores {
		if c.Active() {
			load[c.AssignedTo]++
		}
	}
	best := members[0]
	for _, id := range members[1:] {
		if load[id] < load[best] {
			best = id
		}
	}
	return best
}
