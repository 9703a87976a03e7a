package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboard/internal/model"
	"github.com/google/uuid"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var completedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Type, &c.AssignedTo, &c.Status,
		&c.DueBy, &c.TriggeredBy, &c.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return &c, nil
}

const choreCols = `id, household_id, type, assigned_to, status, due_by, triggered_by, created_at, completed_at`

// Create stores a new pending chore. ID and Status on c are ignored.
func (s *ChoreStore) Create(ctx context.Context, c model.Chore) (*model.Chore, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (id, household_id, type, assigned_to, status, due_by, triggered_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.HouseholdID, c.Type, c.AssignedTo, model.ChoreStatusPending,
		c.DueBy.UTC(), c.TriggeredBy, c.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, id string) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(ctx context.Context, householdID string) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+choreCols+` FROM chores WHERE household_id = ? ORDER BY due_by ASC, created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// MarkCompleted sets the stored status to completed. The first completion
// time is kept on repeat calls. It reports false if no chore has that id.
func (s *ChoreStore) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chores SET status = ?, completed_at = COALESCE(completed_at, ?) WHERE id = ?`,
		model.ChoreStatusCompleted, at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("complete chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
