//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/keyshell/internal/x11"
)

// X11Backend drives windows through an X11 connection and EWMH.
type X11Backend struct {
	conn *x11.Connection
}

var _ Backend = (*X11Backend)(nil)

// NewX11Backend wraps an open connection.
func NewX11Backend(conn *x11.Connection) *X11Backend {
	return &X11Backend{conn: conn}
}

// NewDefault connects to $DISPLAY.
func NewDefault() (Backend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("connect to X11: %w", err)
	}
	return NewX11Backend(conn), nil
}

// Disconnect closes the X11 connection.
func (b *X11Backend) Disconnect() {
	b.conn.Close()
}

// Connection is shared with the hotkey source so grabs and window requests
// use one event loop.
func (b *X11Backend) Connection() *x11.Connection {
	return b.conn
}

// WatchScreenChanges forwards RandR notifications to fn.
func (b *X11Backend) WatchScreenChanges(fn func()) error {
	return b.conn.WatchScreenChanges(fn)
}

// Displays returns the active monitors ordered left to right, then top to
// bottom.
func (b *X11Backend) Displays() ([]Display, error) {
	monitors, err := b.conn.Monitors()
	if err != nil {
		return nil, err
	}
	displays := make([]Display, len(monitors))
	for i, m := range monitors {
		displays[i] = Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: fromGeometry(m.Bounds),
			Usable: fromGeometry(m.WorkArea),
		}
	}
	sort.Slice(displays, func(i, j int) bool {
		a, b := displays[i].Usable, displays[j].Usable
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return displays, nil
}

func (b *X11Backend) ActiveWindow() (WindowID, error) {
	win, err := b.conn.ActiveWindow()
	if err != nil {
		return 0, err
	}
	if win == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return WindowID(win), nil
}

func (b *X11Backend) Window(id WindowID) (Window, error) {
	win := xproto.Window(id)
	geom, err := b.conn.WindowGeometry(win)
	if err != nil {
		return Window{}, gone(err)
	}
	return Window{
		ID:     id,
		PID:    b.conn.WindowPID(win),
		AppID:  b.conn.WindowClass(win),
		Title:  b.conn.WindowTitle(win),
		Bounds: fromGeometry(geom),
	}, nil
}

// ListWindows returns normal, visible windows on the current desktop,
// including sticky ones.
func (b *X11Backend) ListWindows() ([]Window, error) {
	clients, err := b.conn.ClientWindows()
	if err != nil {
		return nil, err
	}
	current, desktopErr := b.conn.CurrentDesktop()

	windows := make([]Window, 0, len(clients))
	for _, win := range clients {
		if !b.conn.IsNormalWindow(win) || b.conn.IsHidden(win) {
			continue
		}
		if desktopErr == nil {
			if d, err := b.conn.WindowDesktop(win); err == nil && d != -1 && d != current {
				continue
			}
		}
		w, err := b.Window(WindowID(win))
		if err != nil {
			continue
		}
		windows = append(windows, w)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].ID < windows[j].ID })
	return windows, nil
}

func (b *X11Backend) MoveResize(id WindowID, bounds Rect) error {
	win := xproto.Window(id)
	if _, err := b.conn.WindowGeometry(win); err != nil {
		return gone(err)
	}
	return b.conn.MoveResizeWindow(win, bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

func (b *X11Backend) Opacity(id WindowID) (uint8, error) {
	level, err := b.conn.WindowOpacity(xproto.Window(id))
	return level, gone(err)
}

func (b *X11Backend) SetOpacity(id WindowID, level uint8) error {
	return gone(b.conn.SetWindowOpacity(xproto.Window(id), level))
}

func (b *X11Backend) AlwaysOnTop(id WindowID) (bool, error) {
	above, err := b.conn.IsAbove(xproto.Window(id))
	return above, gone(err)
}

func (b *X11Backend) SetAlwaysOnTop(id WindowID, enabled bool) error {
	return gone(b.conn.SetAbove(xproto.Window(id), enabled))
}

func (b *X11Backend) Minimize(id WindowID) error {
	return gone(b.conn.Iconify(xproto.Window(id)))
}

func (b *X11Backend) Focus(id WindowID) error {
	return gone(b.conn.Activate(xproto.Window(id)))
}

func fromGeometry(g x11.Geometry) Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

// gone maps a destroyed-window error to ErrWindowGone.
func gone(err error) error {
	if errors.Is(err, x11.ErrBadWindow) {
		return fmt.Errorf("%w: %v", ErrWindowGone, err)
	}
	return err
}
