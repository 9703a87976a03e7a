// Package household groups users into households through shareable join
// codes. A user belongs to at most one household at a time.
package household

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/joincode"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
)

// MaxCodeAttempts bounds how many codes Create tries before giving up.
const MaxCodeAttempts = 10

const maxNameLength = 64

// HouseholdStore is the persistence the registry needs. *store.HouseholdStore
// satisfies it.
type HouseholdStore interface {
	Create(ctx context.Context, code, ownerID string, now time.Time) (*model.Household, error)
	GetByID(ctx context.Context, id string) (*model.Household, error)
	GetByCode(ctx context.Context, code string) (*model.Household, error)
	AddMember(ctx context.Context, householdID, userID string, now time.Time) error
	HouseholdIDForUser(ctx context.Context, userID string) (string, error)
}

// UserStore reads and writes member records. *store.UserStore satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetName(ctx context.Context, id, name string, now time.Time) (*model.User, error)
}

type Registry struct {
	households HouseholdStore
	users      UserStore
	logger     *slog.Logger

	now      func() time.Time
	generate func() (string, error)
}

func NewRegistry(households HouseholdStore, users UserStore, logger *slog.Logger) *Registry {
	return &Registry{
		households: households,
		users:      users,
		logger:     logger.With("component", "household"),
		now:        time.Now,
		generate:   joincode.Generate,
	}
}

// Create makes a new household with a fresh join code and ownerID as its
// first member. The owner leaves any household they were in before.
func (r *Registry) Create(ctx context.Context, ownerID string) (*model.Household, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("owner id is required")
	}

	var h *model.Household
	backoff := retry.WithMaxRetries(MaxCodeAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := r.generate()
		if err != nil {
			return apperr.Unavailable("generate join code", err)
		}
		created, err := r.households.Create(ctx, code, ownerID, r.now())
		if errors.Is(err, store.ErrDuplicateCode) {
			r.logger.Debug("join code collision, retrying", "code", code)
			return retry.RetryableError(err)
		}
		if err != nil {
			return apperr.Unavailable("create household", err)
		}
		h = created
		return nil
	})
	if errors.Is(err, store.ErrDuplicateCode) {
		return nil, fmt.Errorf("no free join code after %d attempts: %w", MaxCodeAttempts, apperr.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("household created", "household_id", h.ID, "owner", ownerID)
	return h, nil
}

// Join adds userID to the household holding code. Codes are matched
// case-insensitively. Joining a household one already belongs to is a
// no-op; joining another one moves the user.
func (r *Registry) Join(ctx context.Context, code, userID string) (*model.Household, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	if !joincode.Valid(code) {
		return nil, apperr.Invalid("join code must be %d letters or digits", joincode.Length)
	}
	code = joincode.Normalize(code)

	h, err := r.households.GetByCode(ctx, code)
	if err != nil {
		return nil, apperr.Unavailable("find household", err)
	}
	if h == nil {
		return nil, apperr.NotFound("household with code %s", code)
	}

	if err := r.households.AddMember(ctx, h.ID, userID, r.now()); err != nil {
		return nil, apperr.Unavailable("join household", err)
	}

	joined, err := r.households.GetByID(ctx, h.ID)
	if err != nil {
		return nil, apperr.Unavailable("get household", err)
	}
	if joined == nil {
		return nil, apperr.NotFound("household %s", h.ID)
	}

	r.logger.Info("household joined", "household_id", h.ID, "user", userID)
	return joined, nil
}

func (r *Registry) Get(ctx context.Context, householdID string) (*model.Household, error) {
	h, err := r.households.GetByID(ctx, householdID)
	if err != nil {
		return nil, apperr.Unavailable("get household", err)
	}
	if h == nil {
		return nil, apperr.NotFound("household %s", householdID)
	}
	return h, nil
}

// MemberOf returns the id of the household userID belongs to.
func (r *Registry) MemberOf(ctx context.Context, userID string) (string, error) {
	id, err := r.households.HouseholdIDForUser(ctx, userID)
	if err != nil {
		return "", apperr.Unavailable("find membership", err)
	}
	if id == "" {
		return "", apperr.NotFound("household for user %s", userID)
	}
	return id, nil
}

// Profile returns the member record for userID. A user the store has never
// seen gets an empty record rather than an error.
func (r *Registry) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Unavailable("get user", err)
	}
	if u == nil {
		return &model.User{ID: userID}, nil
	}
	return u, nil
}

func (r *Registry) SetName(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperr.Invalid("name must be at most %d characters", maxNameLength)
	}

	u, err := r.users.SetName(ctx, userID, name, r.now())
	if err != nil {
		return nil, apperr.Unavailable("set name", err)
	}
	return u, nil
}
