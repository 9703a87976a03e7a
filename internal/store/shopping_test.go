package store

import (
	"context"
	"testing"

	"github.com/dukerupert/choreboard/internal/model"
)

func setupShoppingTestDB(t *testing.T) (*ShoppingStore, string) {
	t.Helper()
	db := openTestDB(t)
	h, err := NewHouseholdStore(db).Create(context.Background(), "ABC123", "u1", testNow)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return NewShoppingStore(db), h.ID
}

func TestShoppingItemCRUD(t *testing.T) {
	ss, hid := setupShoppingTestDB(t)
	ctx := context.Background()

	// Create
	item, err := ss.CreateItem(ctx, hid, "Milk", model.SourceManual, testNow)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Name != "Milk" {
		t.Errorf("name = %q, want %q", item.Name, "Milk")
	}
	if item.AddedBy != model.SourceManual {
		t.Errorf("added_by = %q, want %q", item.AddedBy, model.SourceManual)
	}
	if item.Position != 1 {
		t.Errorf("position = %d, want 1", item.Position)
	}

	// GetByID
	got, err := ss.GetItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Name != "Milk" {
		t.Errorf("got name = %q, want %q", got.Name, "Milk")
	}

	// Delete
	removed, err := ss.DeleteItem(ctx, hid, item.ID)
	if err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if !removed {
		t.Error("expected item to be removed")
	}
	got, err = ss.GetItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestShoppingListInsertionOrderAndDuplicates(t *testing.T) {
	ss, hid := setupShoppingTestDB(t)
	ctx := context.Background()

	names := []string{"Eggs", "Bread", "Eggs"}
	for _, n := range names {
		if _, err := ss.CreateItem(ctx, hid, n, model.SourceManual, testNow); err != nil {
			t.Fatalf("create %q: %v", n, err)
		}
	}

	items, err := ss.ListItems(ctx, hid)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != len(names) {
		t.Fatalf("expected %d items, got %d", len(names), len(items))
	}
	for i, n := range names {
		if items[i].Name != n {
			t.Errorf("item[%d] = %q, want %q", i, items[i].Name, n)
		}
	}
	if items[0].ID == items[2].ID {
		t.Error("duplicate names should still get distinct ids")
	}
}

func TestShoppingDeleteMissingIsNoop(t *testing.T) {
	ss, hid := setupShoppingTestDB(t)
	ctx := context.Background()

	ss.CreateItem(ctx, hid, "Milk", model.SourceSensor, testNow)

	removed, err := ss.DeleteItem(ctx, hid, "missing")
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if removed {
		t.Error("expected nothing removed")
	}

	items, _ := ss.ListItems(ctx, hid)
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
}

func TestShoppingDeleteScopedToHousehold(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	hs := NewHouseholdStore(db)
	ss := NewShoppingStore(db)

	a, _ := hs.Create(ctx, "AAAAAA", "u1", testNow)
	b, _ := hs.Create(ctx, "BBBBBB", "u2", testNow)

	item, _ := ss.CreateItem(ctx, a.ID, "Milk", model.SourceManual, testNow)

	removed, err := ss.DeleteItem(ctx, b.ID, item.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed {
		t.Error("item from another household must not be removed")
	}
}
