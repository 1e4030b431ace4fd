package layoutstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/layoutstore/memory"
	"github.com/1broseidon/keyshell/internal/layoutstore/sqlite"
)

func stores(t *testing.T) map[string]layoutstore.Store {
	t.Helper()
	db, err := sqlite.NewLayoutStore(filepath.Join(t.TempDir(), "layouts.db"), nil)
	if err != nil {
		t.Fatalf("NewLayoutStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]layoutstore.Store{
		"memory": memory.NewLayoutStore(),
		"sqlite": db,
	}
}

func sampleLayout(name string) layoutstore.Layout {
	return layoutstore.Layout{
		Name:    name,
		SavedAt: time.Unix(1700000000, 0),
		Windows: []layoutstore.Window{
			{Class: "firefox", Title: "Docs", X: 0, Y: 0, Width: 960, Height: 1080},
			{Class: "kitty", Title: "shell", X: 960, Y: 0, Width: 960, Height: 1080},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, sampleLayout("work")); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Load(ctx, "work")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got.Windows) != 2 {
				t.Fatalf("expected 2 windows, got %d", len(got.Windows))
			}
			if got.Windows[1].Class != "kitty" || got.Windows[1].X != 960 {
				t.Fatalf("unexpected window %+v", got.Windows[1])
			}
			if !got.SavedAt.Equal(time.Unix(1700000000, 0)) {
				t.Fatalf("SavedAt = %v", got.SavedAt)
			}
		})
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, sampleLayout("work")); err != nil {
				t.Fatalf("Save: %v", err)
			}
			replacement := layoutstore.Layout{
				Name:    "work",
				Windows: []layoutstore.Window{{Class: "code", Title: "main.go", Width: 1920, Height: 1080}},
			}
			if err := store.Save(ctx, replacement); err != nil {
				t.Fatalf("Save replacement: %v", err)
			}
			got, err := store.Load(ctx, "work")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got.Windows) != 1 || got.Windows[0].Class != "code" {
				t.Fatalf("expected replaced layout, got %+v", got.Windows)
			}
		})
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"b", "a"} {
				if err := store.Save(ctx, sampleLayout(n)); err != nil {
					t.Fatalf("Save %s: %v", n, err)
				}
			}
			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 || list[0].Name != "a" || list[0].Windows != 2 {
				t.Fatalf("unexpected list %+v", list)
			}

			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Load(ctx, "a"); !errors.Is(err, layoutstore.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, "a"); !errors.Is(err, layoutstore.ErrNotFound) {
				t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
			}
		})
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, sampleLayout("  ")); err == nil {
				t.Fatal("expected error for blank name")
			}
		})
	}
}

func TestSqliteReopenKeepsLayouts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "layouts.db")

	first, err := sqlite.NewLayoutStore(path, nil)
	if err != nil {
		t.Fatalf("NewLayoutStore: %v", err)
	}
	if err := first.Save(ctx, sampleLayout("work")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first.Close()

	second, err := sqlite.NewLayoutStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if _, err := second.Load(ctx, "work"); err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
}
