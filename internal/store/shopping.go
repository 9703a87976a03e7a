package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboard/internal/model"
	"github.com/google/uuid"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &item.Name, &item.AddedBy,
		&item.Position, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const itemCols = `id, household_id, name, added_by, position, created_at`

// CreateItem appends an item to the end of the household's list.
func (s *ShoppingStore) CreateItem(ctx context.Context, householdID, name string, addedBy model.Source, now time.Time) (*model.ShoppingItem, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shopping_items (id, household_id, name, added_by, position, created_at)
		 VALUES (?1, ?2, ?3, ?4, (SELECT COALESCE(MAX(position), 0) + 1 FROM shopping_items WHERE household_id = ?2), ?5)`,
		id, householdID, name, addedBy, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetItemByID(ctx, id)
}

func (s *ShoppingStore) GetItemByID(ctx context.Context, id string) (*model.ShoppingItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM shopping_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListItems returns the household's list in insertion order.
func (s *ShoppingStore) ListItems(ctx context.Context, householdID string) ([]model.ShoppingItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemCols+` FROM shopping_items WHERE household_id = ? ORDER BY position ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteItem removes the item if it belongs to the household. Missing items
// are not an error; it reports whether a row was removed.
func (s *ShoppingStore) DeleteItem(ctx context.Context, householdID, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_items WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
