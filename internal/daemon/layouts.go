package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/1broseidon/keyshell/internal/ipc"
	"github.com/1broseidon/keyshell/internal/layoutstore"
	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/tiling"
)

const storeTimeout = 5 * time.Second

var errNoStore = errors.New("layout store unavailable")

// SaveLayout records the geometry of every managed top-level window.
func (d *Dispatcher) SaveLayout(name string) (ipc.LayoutResult, error) {
	var res ipc.LayoutResult
	if d.store == nil {
		return res, errNoStore
	}
	name, err := layoutstore.NormalizeName(name)
	if err != nil {
		return res, fmt.Errorf("save layout: %w", err)
	}
	res.Name = name
	windows, err := d.backend.ListWindows()
	if err != nil {
		return res, fmt.Errorf("save layout: %w", err)
	}

	layout := layoutstore.Layout{Name: res.Name, SavedAt: time.Now()}
	for _, w := range windows {
		if d.manager.Excluded(w) {
			continue
		}
		layout.Windows = append(layout.Windows, layoutstore.Window{
			Class:  w.AppID,
			Title:  w.Title,
			X:      w.Bounds.X,
			Y:      w.Bounds.Y,
			Width:  w.Bounds.Width,
			Height: w.Bounds.Height,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := d.store.Save(ctx, layout); err != nil {
		return res, fmt.Errorf("save layout %q: %w", res.Name, err)
	}
	res.Windows = len(layout.Windows)
	d.log.Infow("layout saved", "name", res.Name, "windows", res.Windows)
	return res, nil
}

// RestoreLayout moves open windows back to a saved layout. Windows are
// matched by class and title first, then by class alone; saved entries
// without an open window are skipped.
func (d *Dispatcher) RestoreLayout(name string) (ipc.LayoutResult, error) {
	var res ipc.LayoutResult
	if d.store == nil {
		return res, errNoStore
	}
	name, err := layoutstore.NormalizeName(name)
	if err != nil {
		return res, fmt.Errorf("restore layout: %w", err)
	}
	res.Name = name
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	layout, err := d.store.Load(ctx, res.Name)
	if err != nil {
		return res, fmt.Errorf("restore layout %q: %w", res.Name, err)
	}
	windows, err := d.backend.ListWindows()
	if err != nil {
		return res, fmt.Errorf("restore layout: %w", err)
	}

	var failed int
	for _, m := range matchWindows(layout.Windows, windows) {
		target := tiling.Rect{X: m.saved.X, Y: m.saved.Y, Width: m.saved.Width, Height: m.saved.Height}
		if err := d.manager.MoveTo(m.window, target); err != nil {
			failed++
			d.log.Debugw("restore layout: move failed", "window", m.window, "error", err)
			continue
		}
		res.Windows++
	}
	d.log.Infow("layout restored", "name", res.Name, "windows", res.Windows, "failed", failed)
	return res, nil
}

type windowMatch struct {
	saved  layoutstore.Window
	window platform.WindowID
}

// matchWindows pairs saved entries with open windows. Each open window is
// used at most once.
func matchWindows(saved []layoutstore.Window, open []platform.Window) []windowMatch {
	used := make(map[platform.WindowID]bool, len(open))
	matched := make([]bool, len(saved))
	var out []windowMatch

	pass := func(same func(s layoutstore.Window, w platform.Window) bool) {
		for i, s := range saved {
			if matched[i] {
				continue
			}
			for _, w := range open {
				if used[w.ID] || !same(s, w) {
					continue
				}
				used[w.ID] = true
				matched[i] = true
				out = append(out, windowMatch{saved: s, window: w.ID})
				break
			}
		}
	}
	pass(func(s layoutstore.Window, w platform.Window) bool {
		return strings.EqualFold(s.Class, w.AppID) && s.Title == w.Title
	})
	pass(func(s layoutstore.Window, w platform.Window) bool {
		return s.Class != "" && strings.EqualFold(s.Class, w.AppID)
	})
	return out
}
