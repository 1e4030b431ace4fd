package tiling

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/keyshell/internal/platform"
)

// ErrNoMonitors is returned when the display query yields nothing usable.
var ErrNoMonitors = errors.New("no monitors available")

// Monitor is a display work-area with its position in the left-to-right order.
type Monitor struct {
	ID       int
	Name     string
	WorkArea Rect
	Ordinal  int
}

// DisplaySource is the subset of platform.Backend the topology reads.
type DisplaySource interface {
	Displays() ([]platform.Display, error)
}

// Topology caches monitor work-areas until explicitly invalidated. It is
// owned by the owner thread and has no locking.
type Topology struct {
	source   DisplaySource
	monitors []Monitor
	valid    bool
}

// NewTopology creates an empty, invalid cache over source.
func NewTopology(source DisplaySource) *Topology {
	return &Topology{source: source}
}

// Invalidate drops the cache; the next query re-reads the displays.
func (t *Topology) Invalidate() {
	t.valid = false
	t.monitors = nil
}

// Monitors returns the ordered monitor list, querying the displays when the
// cache is empty.
func (t *Topology) Monitors() ([]Monitor, error) {
	if t.valid {
		return t.monitors, nil
	}
	monitors, err := t.query()
	if err != nil {
		return nil, err
	}
	t.monitors = monitors
	t.valid = true
	return monitors, nil
}

// Revalidate re-reads the displays and replaces the cache when the layout
// differs. It reports whether anything changed.
func (t *Topology) Revalidate() (bool, error) {
	fresh, err := t.query()
	if err != nil {
		return false, err
	}
	changed := !t.valid || fingerprint(fresh) != fingerprint(t.monitors)
	t.monitors = fresh
	t.valid = true
	return changed, nil
}

// MonitorFor returns the monitor holding the center of r, falling back to the
// one with the largest overlap, then the first monitor.
func (t *Topology) MonitorFor(r Rect) (Monitor, error) {
	monitors, err := t.Monitors()
	if err != nil {
		return Monitor{}, err
	}

	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	for _, m := range monitors {
		wa := m.WorkArea
		if cx >= wa.X && cx < wa.X+wa.Width && cy >= wa.Y && cy < wa.Y+wa.Height {
			return m, nil
		}
	}

	best, bestArea := monitors[0], 0
	for _, m := range monitors {
		if a := overlapArea(r, m.WorkArea); a > bestArea {
			best, bestArea = m, a
		}
	}
	return best, nil
}

// Next returns the monitor after m in ordinal order, wrapping to the first.
func (t *Topology) Next(m Monitor) (Monitor, error) {
	return t.step(m, 1)
}

// Prev returns the monitor before m in ordinal order, wrapping to the last.
func (t *Topology) Prev(m Monitor) (Monitor, error) {
	return t.step(m, -1)
}

func (t *Topology) step(m Monitor, delta int) (Monitor, error) {
	monitors, err := t.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	idx := 0
	for i := range monitors {
		if monitors[i].ID == m.ID {
			idx = i
			break
		}
	}
	n := len(monitors)
	return monitors[((idx+delta)%n+n)%n], nil
}

func (t *Topology) query() ([]Monitor, error) {
	if t.source == nil {
		return nil, ErrNoMonitors
	}
	displays, err := t.source.Displays()
	if err != nil {
		return nil, fmt.Errorf("query displays: %w", err)
	}

	monitors := make([]Monitor, 0, len(displays))
	for _, d := range displays {
		wa := d.Usable
		if wa.Width <= 0 || wa.Height <= 0 {
			wa = d.Bounds
		}
		if wa.Width <= 0 || wa.Height <= 0 {
			continue
		}
		monitors = append(monitors, Monitor{
			ID:       d.ID,
			Name:     d.Name,
			WorkArea: Rect{X: wa.X, Y: wa.Y, Width: wa.Width, Height: wa.Height},
		})
	}
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}

	sort.SliceStable(monitors, func(i, j int) bool {
		if monitors[i].WorkArea.X != monitors[j].WorkArea.X {
			return monitors[i].WorkArea.X < monitors[j].WorkArea.X
		}
		return monitors[i].WorkArea.Y < monitors[j].WorkArea.Y
	})
	for i := range monitors {
		monitors[i].Ordinal = i
	}
	return monitors, nil
}

func fingerprint(monitors []Monitor) string {
	var b strings.Builder
	for _, m := range monitors {
		fmt.Fprintf(&b, "%d:%s;", m.ID, m.WorkArea)
	}
	return b.String()
}

func overlapArea(a, b Rect) int {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}
