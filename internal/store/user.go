package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboard/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var householdID sql.NullString
	err := scanner.Scan(&u.ID, &u.Name, &householdID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if householdID.Valid {
		u.HouseholdID = &householdID.String
	}
	return &u, nil
}

const userCols = `u.id, u.name, hm.household_id, u.created_at`

// ensureUser creates the member record for an identity-provider subject if
// it does not exist yet.
func ensureUser(ctx context.Context, ex execer, id string, now time.Time) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		id, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+`
		 FROM users u
		 LEFT JOIN household_members hm ON hm.user_id = u.id
		 WHERE u.id = ?`,
		id,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetName creates the user if needed and stores the display name.
func (s *UserStore) SetName(ctx context.Context, id, name string, now time.Time) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		id, name, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("set user name: %w", err)
	}
	return s.GetByID(ctx, id)
}
