package tiling

import (
	"errors"
	"testing"

	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/platform/platformtest"
)

func newTestManager(displays ...platform.Display) (*Manager, *platformtest.Backend) {
	if len(displays) == 0 {
		displays = []platform.Display{platformtest.Monitor(0, platform.Rect{Width: 1920, Height: 1080})}
	}
	backend := platformtest.New(displays...)
	return NewManager(backend, nil, ManagerOptions{}, nil), backend
}

func addWindow(b *platformtest.Backend, id platform.WindowID, r platform.Rect) {
	b.AddWindow(platform.Window{ID: id, AppID: "Editor", Title: "notes", Bounds: r})
}

func TestManager_TileThenUndoRoundTrip(t *testing.T) {
	m, backend := newTestManager()
	original := platform.Rect{X: 100, Y: 120, Width: 800, Height: 600}
	addWindow(backend, 1, original)

	if err := m.Tile(1, LeftHalf); err != nil {
		t.Fatalf("Tile: %v", err)
	}
	got, _ := backend.Bounds(1)
	if got != (platform.Rect{X: 0, Y: 0, Width: 960, Height: 1080}) {
		t.Fatalf("tiled bounds = %+v", got)
	}
	if st, _ := m.State(1); st.Mode != Tiled || st.UndoDepth != 1 {
		t.Fatalf("state after tile = %+v", st)
	}

	ok, err := m.Undo(1)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	got, _ = backend.Bounds(1)
	if got != original {
		t.Fatalf("undo restored %+v, want %+v", got, original)
	}
	if st, _ := m.State(1); st.Mode != Free {
		t.Fatalf("window should be free again, got %s", st.Mode)
	}
}

func TestManager_RepeatedTileStillPushes(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{X: 5, Y: 5, Width: 300, Height: 300})

	for i := 0; i < 3; i++ {
		if err := m.Tile(1, Maximize); err != nil {
			t.Fatalf("Tile: %v", err)
		}
	}
	if st, _ := m.State(1); st.UndoDepth != 3 {
		t.Fatalf("UndoDepth = %d, want 3", st.UndoDepth)
	}
}

func TestManager_UndoEmptyIsNoop(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{Width: 10, Height: 10})
	ok, err := m.Undo(1)
	if ok || err != nil {
		t.Fatalf("Undo on empty history = %v, %v", ok, err)
	}
	if backend.Moves() != 0 {
		t.Fatalf("no-op undo moved the window")
	}
}

func TestManager_GridThenRestoreOriginal(t *testing.T) {
	m, backend := newTestManager()
	original := platform.Rect{X: 40, Y: 40, Width: 500, Height: 400}
	addWindow(backend, 1, original)

	_ = m.Grid(1, TopRight)
	_ = m.Grid(1, BottomLeft)
	_ = m.Tile(1, Center)

	ok, err := m.RestoreOriginal(1)
	if err != nil || !ok {
		t.Fatalf("RestoreOriginal = %v, %v", ok, err)
	}
	got, _ := backend.Bounds(1)
	if got != original {
		t.Fatalf("restored %+v, want %+v", got, original)
	}
	if st, _ := m.State(1); st.Mode != Free || st.UndoDepth != 0 {
		t.Fatalf("state after restore = %+v", st)
	}
}

func TestManager_StaleWindow(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{Width: 100, Height: 100})
	_ = m.Tile(1, LeftHalf)
	backend.CloseWindow(1)

	err := m.Tile(1, RightHalf)
	var stale *StaleWindowError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleWindowError, got %v", err)
	}
	if !errors.Is(err, platform.ErrWindowGone) {
		t.Fatalf("stale error should wrap ErrWindowGone")
	}
	if _, ok := m.State(1); ok {
		t.Fatalf("state for closed window should be dropped")
	}
}

func TestManager_MoveToNextMonitorSingleIsNoop(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{X: 10, Y: 10, Width: 100, Height: 100})

	if err := m.MoveToNextMonitor(1); err != nil {
		t.Fatalf("MoveToNextMonitor: %v", err)
	}
	if backend.Moves() != 0 {
		t.Fatalf("single monitor move should not touch the window")
	}
	if _, ok := m.State(1); ok {
		t.Fatalf("single monitor move should not record history")
	}
}

func TestManager_MoveToNextMonitorWraps(t *testing.T) {
	m, backend := newTestManager(
		platformtest.Monitor(0, platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}),
		platformtest.Monitor(1, platform.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}),
	)
	start := platform.Rect{X: 960, Y: 0, Width: 960, Height: 1080}
	addWindow(backend, 1, start)

	if err := m.MoveToNextMonitor(1); err != nil {
		t.Fatalf("MoveToNextMonitor: %v", err)
	}
	got, _ := backend.Bounds(1)
	if got != (platform.Rect{X: 3200, Y: 0, Width: 1280, Height: 1440}) {
		t.Fatalf("moved to %+v", got)
	}

	if err := m.MoveToNextMonitor(1); err != nil {
		t.Fatalf("MoveToNextMonitor wrap: %v", err)
	}
	got, _ = backend.Bounds(1)
	if got != start {
		t.Fatalf("wrap returned %+v, want %+v", got, start)
	}

	_, _ = m.Undo(1)
	got, _ = backend.Bounds(1)
	if got.X != 3200 {
		t.Fatalf("undo after wrap = %+v", got)
	}
}

func TestManager_MoveWithoutDisplaysPushesNothing(t *testing.T) {
	backend := platformtest.New()
	m := NewManager(backend, nil, ManagerOptions{}, nil)
	addWindow(backend, 1, platform.Rect{Width: 100, Height: 100})

	if err := m.MoveToNextMonitor(1); !errors.Is(err, ErrNoMonitors) {
		t.Fatalf("expected ErrNoMonitors, got %v", err)
	}
	if st, ok := m.State(1); ok && st.UndoDepth != 0 {
		t.Fatalf("failed discovery recorded undo: %+v", st)
	}
}

func TestManager_TransparencyIndependentOfGeometry(t *testing.T) {
	m, backend := newTestManager()
	original := platform.Rect{X: 1, Y: 2, Width: 300, Height: 200}
	addWindow(backend, 1, original)

	_ = m.Tile(1, RightHalf)
	if err := m.SetTransparency(1, 128); err != nil {
		t.Fatalf("SetTransparency: %v", err)
	}
	if lvl, _ := backend.Opacity(1); lvl != 128 {
		t.Fatalf("opacity = %d", lvl)
	}

	ok, err := m.UndoTransparency(1)
	if !ok || err != nil {
		t.Fatalf("UndoTransparency = %v, %v", ok, err)
	}
	if lvl, _ := backend.Opacity(1); lvl != 255 {
		t.Fatalf("opacity after undo = %d", lvl)
	}
	tiled, _ := backend.Bounds(1)
	if tiled.X != 960 {
		t.Fatalf("transparency undo moved the window: %+v", tiled)
	}

	_, _ = m.Undo(1)
	got, _ := backend.Bounds(1)
	if got != original {
		t.Fatalf("geometry undo = %+v", got)
	}
}

func TestManager_AdjustTransparencyClamps(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{Width: 10, Height: 10})
	if err := m.AdjustTransparency(1, 40); err != nil {
		t.Fatalf("AdjustTransparency: %v", err)
	}
	if lvl, _ := backend.Opacity(1); lvl != 255 {
		t.Fatalf("opacity = %d, want clamped 255", lvl)
	}
	_ = m.AdjustTransparency(1, -300)
	if lvl, _ := backend.Opacity(1); lvl != 0 {
		t.Fatalf("opacity = %d, want clamped 0", lvl)
	}
}

func TestManager_ToggleAlwaysOnTop(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{Width: 10, Height: 10})
	on, err := m.ToggleAlwaysOnTop(1)
	if err != nil || !on {
		t.Fatalf("Toggle = %v, %v", on, err)
	}
	on, _ = m.ToggleAlwaysOnTop(1)
	if on {
		t.Fatalf("second toggle should disable")
	}
}

func TestManager_ExcludedWindow(t *testing.T) {
	backend := platformtest.New(platformtest.Monitor(0, platform.Rect{Width: 100, Height: 100}))
	m := NewManager(backend, nil, ManagerOptions{ExcludedClasses: []string{"plank"}, ExcludedTitles: []string{"Picture-in-Picture"}}, nil)

	backend.AddWindow(platform.Window{ID: 1, AppID: "Plank", Bounds: platform.Rect{Width: 10, Height: 10}})
	if _, err := m.Active(); !errors.Is(err, ErrExcluded) {
		t.Fatalf("expected ErrExcluded for class, got %v", err)
	}
	backend.AddWindow(platform.Window{ID: 2, Title: "picture-in-picture video", Bounds: platform.Rect{Width: 10, Height: 10}})
	if _, err := m.Active(); !errors.Is(err, ErrExcluded) {
		t.Fatalf("expected ErrExcluded for title, got %v", err)
	}
	backend.AddWindow(platform.Window{ID: 3, AppID: "term", Bounds: platform.Rect{Width: 10, Height: 10}})
	if id, err := m.Active(); err != nil || id != 3 {
		t.Fatalf("Active = %d, %v", id, err)
	}
}

func TestManager_TileAllAndMinimizeOthers(t *testing.T) {
	m, backend := newTestManager(platformtest.Monitor(0, platform.Rect{Width: 200, Height: 100}))
	addWindow(backend, 1, platform.Rect{X: 10, Y: 10, Width: 20, Height: 20})
	addWindow(backend, 2, platform.Rect{X: 50, Y: 10, Width: 20, Height: 20})

	n, err := m.TileAll(1)
	if err != nil || n != 2 {
		t.Fatalf("TileAll = %d, %v", n, err)
	}
	r1, _ := backend.Bounds(1)
	r2, _ := backend.Bounds(2)
	if r1 != (platform.Rect{X: 0, Y: 0, Width: 100, Height: 100}) || r2.X != 100 {
		t.Fatalf("TileAll positions %+v %+v", r1, r2)
	}

	n, err = m.MinimizeAllExcept(2)
	if err != nil || n != 1 || !backend.Minimized(1) || backend.Minimized(2) {
		t.Fatalf("MinimizeAllExcept = %d, %v", n, err)
	}
}

func TestManager_Prune(t *testing.T) {
	m, backend := newTestManager()
	addWindow(backend, 1, platform.Rect{Width: 10, Height: 10})
	addWindow(backend, 2, platform.Rect{Width: 10, Height: 10})
	_ = m.Tile(1, LeftHalf)
	_ = m.Tile(2, LeftHalf)
	if dropped := m.Prune([]platform.WindowID{2}); dropped != 1 {
		t.Fatalf("Prune dropped %d, want 1", dropped)
	}
	if _, ok := m.State(1); ok {
		t.Fatalf("window 1 should be forgotten")
	}
	if _, ok := m.State(2); !ok {
		t.Fatalf("window 2 should survive")
	}
}
