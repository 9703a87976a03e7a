package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboard/internal/model"
	"github.com/google/uuid"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Code, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, code, created_at`

// upsertMembership points the user's single membership row at householdID.
// Re-joining the same household is a no-op and keeps the original position;
// moving from another household appends the user at the end.
const upsertMembership = `
INSERT INTO household_members (user_id, household_id, position, joined_at)
VALUES (?1, ?2, (SELECT COALESCE(MAX(position), 0) + 1 FROM household_members WHERE household_id = ?2), ?3)
ON CONFLICT (user_id) DO UPDATE SET
	household_id = excluded.household_id,
	position     = excluded.position,
	joined_at    = excluded.joined_at
WHERE household_members.household_id <> excluded.household_id`

// Create inserts a household holding code with ownerID as its only member,
// in one transaction. It returns ErrDuplicateCode if the code is taken.
func (s *HouseholdStore) Create(ctx context.Context, code, ownerID string, now time.Time) (*model.Household, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO households (id, code, created_at) VALUES (?, ?, ?)`,
		id, code, now.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("insert household: %w", err)
	}

	if err := ensureUser(ctx, tx, ownerID, now); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, upsertMembership, ownerID, id, now.UTC()); err != nil {
		return nil, fmt.Errorf("add owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit household: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	return s.load(ctx, row, "get household")
}

// GetByCode looks up a household by its normalized join code.
func (s *HouseholdStore) GetByCode(ctx context.Context, code string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE code = ?`, code)
	return s.load(ctx, row, "get household by code")
}

func (s *HouseholdStore) load(ctx context.Context, row *sql.Row, op string) (*model.Household, error) {
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	members, err := s.ListMembers(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	h.Members = make([]string, 0, len(members))
	for _, m := range members {
		h.Members = append(h.Members, m.ID)
	}
	return h, nil
}

// AddMember makes userID a member of householdID. The membership write is a
// single upsert, so concurrent joins cannot drop each other.
func (s *HouseholdStore) AddMember(ctx context.Context, householdID, userID string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ensureUser(ctx, tx, userID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertMembership, userID, householdID, now.UTC()); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return tx.Commit()
}

// ListMembers returns the household's members in the order they joined.
func (s *HouseholdStore) ListMembers(ctx context.Context, householdID string) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+`
		 FROM household_members hm
		 JOIN users u ON u.id = hm.user_id
		 WHERE hm.household_id = ?
		 ORDER BY hm.position ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *u)
	}
	return members, rows.Err()
}

// HouseholdIDForUser returns the id of the user's household, or "" if the
// user is not a member of any.
func (s *HouseholdStore) HouseholdIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT household_id FROM household_members WHERE user_id = ?`,
		userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("household for user: %w", err)
	}
	return id, nil
}
