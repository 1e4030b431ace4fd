package tiling

import (
	"errors"
	"testing"

	"github.com/1broseidon/keyshell/internal/platform"
)

type fakeDisplays struct {
	displays []platform.Display
	err      error
	calls    int
}

func (f *fakeDisplays) Displays() ([]platform.Display, error) {
	f.calls++
	return f.displays, f.err
}

func display(id int, x, y, w, h int) platform.Display {
	r := platform.Rect{X: x, Y: y, Width: w, Height: h}
	return platform.Display{ID: id, Name: "mon", Bounds: r, Usable: r}
}

func TestTopology_OrdersLeftToRight(t *testing.T) {
	src := &fakeDisplays{displays: []platform.Display{
		display(0, 1920, 0, 1920, 1080),
		display(1, -1280, 0, 1280, 1024),
		display(2, 0, 0, 1920, 1080),
	}}
	topo := NewTopology(src)
	monitors, err := topo.Monitors()
	if err != nil {
		t.Fatalf("Monitors: %v", err)
	}
	order := []int{monitors[0].ID, monitors[1].ID, monitors[2].ID}
	if order[0] != 1 || order[1] != 2 || order[2] != 0 {
		t.Fatalf("order = %v, want [1 2 0]", order)
	}
	for i, m := range monitors {
		if m.Ordinal != i {
			t.Fatalf("monitor %d has ordinal %d", i, m.Ordinal)
		}
	}
}

func TestTopology_CachesUntilInvalidated(t *testing.T) {
	src := &fakeDisplays{displays: []platform.Display{display(0, 0, 0, 100, 100)}}
	topo := NewTopology(src)
	_, _ = topo.Monitors()
	_, _ = topo.Monitors()
	if src.calls != 1 {
		t.Fatalf("expected 1 query, got %d", src.calls)
	}
	topo.Invalidate()
	_, _ = topo.Monitors()
	if src.calls != 2 {
		t.Fatalf("expected re-query after Invalidate, got %d", src.calls)
	}
}

func TestTopology_NextWraps(t *testing.T) {
	src := &fakeDisplays{displays: []platform.Display{
		display(0, 0, 0, 100, 100),
		display(1, 100, 0, 100, 100),
	}}
	topo := NewTopology(src)
	first, _ := topo.MonitorFor(Rect{10, 10, 20, 20})
	next, err := topo.Next(first)
	if err != nil || next.ID != 1 {
		t.Fatalf("Next = %v, %v", next, err)
	}
	wrapped, _ := topo.Next(next)
	if wrapped.ID != 0 {
		t.Fatalf("Next did not wrap: %v", wrapped)
	}
	prev, _ := topo.Prev(first)
	if prev.ID != 1 {
		t.Fatalf("Prev did not wrap: %v", prev)
	}
}

func TestTopology_MonitorForFallsBackToOverlap(t *testing.T) {
	src := &fakeDisplays{displays: []platform.Display{
		display(0, 0, 0, 100, 100),
		display(1, 100, 0, 100, 100),
	}}
	topo := NewTopology(src)
	// Center lies off-screen below; most of the rect overlaps monitor 1.
	m, err := topo.MonitorFor(Rect{X: 120, Y: 90, Width: 60, Height: 400})
	if err != nil || m.ID != 1 {
		t.Fatalf("MonitorFor = %v, %v", m, err)
	}
}

func TestTopology_RevalidateDetectsChange(t *testing.T) {
	src := &fakeDisplays{displays: []platform.Display{display(0, 0, 0, 100, 100)}}
	topo := NewTopology(src)
	_, _ = topo.Monitors()
	changed, err := topo.Revalidate()
	if err != nil || changed {
		t.Fatalf("Revalidate on same layout = %v, %v", changed, err)
	}
	src.displays = append(src.displays, display(1, 100, 0, 100, 100))
	changed, err = topo.Revalidate()
	if err != nil || !changed {
		t.Fatalf("Revalidate after hotplug = %v, %v", changed, err)
	}
}

func TestTopology_QueryErrors(t *testing.T) {
	topo := NewTopology(&fakeDisplays{})
	if _, err := topo.Monitors(); !errors.Is(err, ErrNoMonitors) {
		t.Fatalf("expected ErrNoMonitors, got %v", err)
	}
	boom := errors.New("boom")
	topo = NewTopology(&fakeDisplays{err: boom})
	if _, err := topo.Monitors(); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
