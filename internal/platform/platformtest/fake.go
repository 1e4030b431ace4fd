// Package platformtest provides an in-memory platform.Backend for tests.
package platformtest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/keyshell/internal/platform"
)

// Backend is a scripted window system. The zero value has no displays and no
// windows; use New.
type Backend struct {
	mu       sync.Mutex
	displays []platform.Display
	windows  map[platform.WindowID]*fakeWindow
	active   platform.WindowID
	moves    int
}

type fakeWindow struct {
	win       platform.Window
	opacity   uint8
	above     bool
	minimized bool
}

var _ platform.Backend = (*Backend)(nil)

// New returns a backend with the given displays. Usable defaults to Bounds.
func New(displays ...platform.Display) *Backend {
	for i := range displays {
		if displays[i].Usable == (platform.Rect{}) {
			displays[i].Usable = displays[i].Bounds
		}
	}
	return &Backend{
		displays: displays,
		windows:  make(map[platform.WindowID]*fakeWindow),
	}
}

// Monitor builds a display whose bounds and work-area are r.
func Monitor(id int, r platform.Rect) platform.Display {
	return platform.Display{ID: id, Name: fmt.Sprintf("fake-%d", id), Bounds: r, Usable: r}
}

// AddWindow registers a window and makes it active.
func (b *Backend) AddWindow(w platform.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[w.ID] = &fakeWindow{win: w, opacity: platform.OpaqueLevel}
	b.active = w.ID
}

// CloseWindow removes a window as if the user closed it.
func (b *Backend) CloseWindow(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, id)
	if b.active == id {
		b.active = 0
	}
}

// SetActive changes the foreground window.
func (b *Backend) SetActive(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = id
}

// SetDisplays replaces the monitor layout.
func (b *Backend) SetDisplays(displays ...platform.Display) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.displays = displays
}

// Bounds returns the current geometry of id.
func (b *Backend) Bounds(id platform.WindowID) (platform.Rect, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	if !ok {
		return platform.Rect{}, false
	}
	return w.win.Bounds, true
}

// Minimized reports whether id was minimized.
func (b *Backend) Minimized(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	return ok && w.minimized
}

// Moves counts successful MoveResize calls.
func (b *Backend) Moves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.moves
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.Display, len(b.displays))
	copy(out, b.displays)
	return out, nil
}

func (b *Backend) ActiveWindow() (platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return b.active, nil
}

func (b *Backend) Window(id platform.WindowID) (platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return platform.Window{}, err
	}
	return w.win, nil
}

func (b *Backend) ListWindows() ([]platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.Window, 0, len(b.windows))
	for _, w := range b.windows {
		if !w.minimized {
			out = append(out, w.win)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *Backend) MoveResize(id platform.WindowID, bounds platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return err
	}
	w.win.Bounds = bounds
	b.moves++
	return nil
}

func (b *Backend) Opacity(id platform.WindowID) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return 0, err
	}
	return w.opacity, nil
}

func (b *Backend) SetOpacity(id platform.WindowID, level uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return err
	}
	w.opacity = level
	return nil
}

func (b *Backend) AlwaysOnTop(id platform.WindowID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return false, err
	}
	return w.above, nil
}

func (b *Backend) SetAlwaysOnTop(id platform.WindowID, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return err
	}
	w.above = enabled
	return nil
}

func (b *Backend) Minimize(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.lookup(id)
	if err != nil {
		return err
	}
	w.minimized = true
	return nil
}

func (b *Backend) Focus(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.lookup(id); err != nil {
		return err
	}
	b.active = id
	return nil
}

func (b *Backend) lookup(id platform.WindowID) (*fakeWindow, error) {
	w, ok := b.windows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", platform.ErrWindowGone, id)
	}
	return w, nil
}
