package shopping

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/model"
	"github.com/dukerupert/choreboard/internal/store"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestList(t *testing.T) (*List, string) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	households := store.NewHouseholdStore(db)
	h, err := households.Create(context.Background(), "ABC123", "u1", testNow)
	require.NoError(t, err)
	return NewList(store.NewShoppingStore(db), households, testLogger()), h.ID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd(t *testing.T) {
	l, hid := newTestList(t)
	ctx := context.Background()

	item, err := l.Add(ctx, hid, "  Milk ", model.SourceManual)
	require.NoError(t, err)
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, model.SourceManual, item.AddedBy)
	assert.NotEmpty(t, item.ID)

	items, err := l.Items(ctx, hid)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestAddRejectsBlankNames(t *testing.T) {
	l, hid := newTestList(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := l.Add(ctx, hid, name, model.SourceManual)
		assert.ErrorIs(t, err, apperr.ErrValidation, "name %q", name)
	}

	items, err := l.Items(ctx, hid)
	require.NoError(t, err)
	assert.Empty(t, items, "rejected names must not be written")
}

func TestAddRejectsUnknownSource(t *testing.T) {
	l, hid := newTestList(t)

	_, err := l.Add(context.Background(), hid, "Milk", "robot")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddKeepsOrderAndDuplicates(t *testing.T) {
	l, hid := newTestList(t)
	ctx := context.Background()

	a, err := l.Add(ctx, hid, "Eggs", model.SourceSensor)
	require.NoError(t, err)
	b, err := l.Add(ctx, hid, "Eggs", model.SourceManual)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	items, err := l.Items(ctx, hid)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)
}

func TestRemove(t *testing.T) {
	l, hid := newTestList(t)
	ctx := context.Background()

	item, err := l.Add(ctx, hid, "Bread", model.SourceManual)
	require.NoError(t, err)

	removed, err := l.Remove(ctx, hid, item.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = l.Remove(ctx, hid, item.ID)
	require.NoError(t, err)
	assert.False(t, removed, "removing a missing item is a no-op")

	items, err := l.Items(ctx, hid)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestUnknownHousehold(t *testing.T) {
	l, _ := newTestList(t)
	ctx := context.Background()

	_, err := l.Add(ctx, "no-such-household", "Milk", model.SourceManual)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.False(t, apperr.Retryable(err))

	items, err := l.Items(ctx, "no-such-household")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, items)

	_, err = l.Remove(ctx, "no-such-household", "i1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddValidatesBeforeHouseholdLookup(t *testing.T) {
	l, _ := newTestList(t)

	_, err := l.Add(context.Background(), "no-such-household", " ", model.SourceManual)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type staticHouseholds struct{ err error }

func (s staticHouseholds) GetByID(_ context.Context, id string) (*model.Household, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Household{ID: id}, nil
}

type downStore struct{}

func (downStore) CreateItem(context.Context, string, string, model.Source, time.Time) (*model.ShoppingItem, error) {
	return nil, errors.New("disk full")
}
func (downStore) ListItems(context.Context, string) ([]model.ShoppingItem, error) {
	return nil, errors.New("disk full")
}
func (downStore) DeleteItem(context.Context, string, string) (bool, error) {
	return false, errors.New("disk full")
}

func TestStoreFailuresSurface(t *testing.T) {
	l := NewList(downStore{}, staticHouseholds{}, testLogger())
	ctx := context.Background()

	_, err := l.Add(ctx, "h1", "Milk", model.SourceManual)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	items, err := l.Items(ctx, "h1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.Nil(t, items)

	_, err = l.Remove(ctx, "h1", "i1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestHouseholdLookupFailureSurfaces(t *testing.T) {
	l := NewList(downStore{}, staticHouseholds{err: errors.New("database is locked")}, testLogger())
	ctx := context.Background()

	_, err := l.Add(ctx, "h1", "Milk", model.SourceManual)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.True(t, apperr.Retryable(err))

	_, err = l.Items(ctx, "h1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
