// Package shopping keeps each household's shared shopping list.
package shopping

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/model"
)

const maxNameLength = 200

// Store persists list items. *store.ShoppingStore satisfies it.
type Store interface {
	CreateItem(ctx context.Context, householdID, name string, addedBy model.Source, now time.Time) (*model.ShoppingItem, error)
	ListItems(ctx context.Context, householdID string) ([]model.ShoppingItem, error)
	DeleteItem(ctx context.Context, householdID, id string) (bool, error)
}

// Households resolves a household. *store.HouseholdStore satisfies it.
type Households interface {
	GetByID(ctx context.Context, id string) (*model.Household, error)
}

type List struct {
	store      Store
	households Households
	logger     *slog.Logger
	now        func() time.Time
}

func NewList(store Store, households Households, logger *slog.Logger) *List {
	return &List{
		store:      store,
		households: households,
		logger:     logger.With("component", "shopping"),
		now:        time.Now,
	}
}

func (l *List) household(ctx context.Context, householdID string) error {
	h, err := l.households.GetByID(ctx, householdID)
	if err != nil {
		return apperr.Unavailable("get household", err)
	}
	if h == nil {
		return apperr.NotFound("household %s", householdID)
	}
	return nil
}

// Add appends an item to the end of the household's list. Names are trimmed;
// the same name may appear more than once.
func (l *List) Add(ctx context.Context, householdID, name string, addedBy model.Source) (*model.ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("item name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperr.Invalid("item name must be at most %d characters", maxNameLength)
	}
	if !addedBy.Valid() {
		return nil, apperr.Invalid("unknown item source %q", addedBy)
	}
	if err := l.household(ctx, householdID); err != nil {
		return nil, err
	}

	item, err := l.store.CreateItem(ctx, householdID, name, addedBy, l.now())
	if err != nil {
		return nil, apperr.Unavailable("add item", err)
	}
	l.logger.Debug("item added", "household_id", householdID, "item_id", item.ID, "source", addedBy)
	return item, nil
}

// Remove deletes the item if it is on the list. It reports whether anything
// was removed; a missing item is not an error, a missing household is.
func (l *List) Remove(ctx context.Context, householdID, itemID string) (bool, error) {
	if err := l.household(ctx, householdID); err != nil {
		return false, err
	}
	removed, err := l.store.DeleteItem(ctx, householdID, itemID)
	if err != nil {
		return false, apperr.Unavailable("remove item", err)
	}
	return removed, nil
}

// Items returns the list in insertion order.
func (l *List) Items(ctx context.Context, householdID string) ([]model.ShoppingItem, error) {
	if err := l.household(ctx, householdID); err != nil {
		return nil, err
	}
	items, err := l.store.ListItems(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("list items", err)
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	return items, nil
}
