package x11

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ErrBadWindow reports that the X server no longer knows the window.
var ErrBadWindow = errors.New("x11: bad window")

const opacityAtom = "_NET_WM_WINDOW_OPACITY"

// Geometry is a window's frame-relative position in root coordinates.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Maximized windows ignore move requests on most window managers.
	_ = c.unmaximizeWindow(windowID)

	// Use EWMH MoveResize for better WM compatibility
	err := ewmh.MoveresizeWindow(
		c.XUtil,
		windowID,
		x, y, width, height,
	)
	if err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state)
		}
	}
	return nil
}

// WindowGeometry returns the window position translated to root coordinates.
// It returns ErrBadWindow when the window has been destroyed.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, classify(err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Geometry{}, classify(err)
	}

	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// WindowOpacity returns the _NET_WM_WINDOW_OPACITY value scaled to 0-255.
// Windows without the property are fully opaque.
func (c *Connection) WindowOpacity(windowID xproto.Window) (uint8, error) {
	if _, err := c.WindowGeometry(windowID); err != nil {
		return 0, err
	}
	raw, err := xprop.PropValNum(xprop.GetProperty(c.XUtil, windowID, opacityAtom))
	if err != nil {
		return 255, nil
	}
	return uint8(uint32(raw) >> 24), nil
}

// SetWindowOpacity sets _NET_WM_WINDOW_OPACITY from a 0-255 level.
// Compositors read the property from the frame, so it's written on both.
func (c *Connection) SetWindowOpacity(windowID xproto.Window, level uint8) error {
	if _, err := c.WindowGeometry(windowID); err != nil {
		return err
	}
	value := uint(level) * 0x01010101
	if err := xprop.ChangeProp32(c.XUtil, windowID, opacityAtom, "CARDINAL", value); err != nil {
		return fmt.Errorf("set opacity: %w", classify(err))
	}
	if frame, err := c.frameWindow(windowID); err == nil && frame != windowID {
		_ = xprop.ChangeProp32(c.XUtil, frame, opacityAtom, "CARDINAL", value)
	}
	return nil
}

// IsAbove reports whether _NET_WM_STATE_ABOVE is set.
func (c *Connection) IsAbove(windowID xproto.Window) (bool, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		if _, gerr := c.WindowGeometry(windowID); gerr != nil {
			return false, gerr
		}
		return false, nil
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_ABOVE" {
			return true, nil
		}
	}
	return false, nil
}

// SetAbove adds or removes _NET_WM_STATE_ABOVE.
func (c *Connection) SetAbove(windowID xproto.Window, enabled bool) error {
	if _, err := c.WindowGeometry(windowID); err != nil {
		return err
	}
	action := ewmh.StateRemove
	if enabled {
		action = ewmh.StateAdd
	}
	return ewmh.WmStateReq(c.XUtil, windowID, action, "_NET_WM_STATE_ABOVE")
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// IsHidden reports whether the window is minimized or fullscreen.
func (c *Connection) IsHidden(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_HIDDEN", "_NET_WM_STATE_FULLSCREEN":
			return true
		}
	}
	return false
}

// ActiveWindow returns _NET_ACTIVE_WINDOW.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// ClientWindows returns the EWMH client list.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// WindowClass returns the WM_CLASS class part.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// WindowPID returns _NET_WM_PID or 0.
func (c *Connection) WindowPID(windowID xproto.Window) int {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return int(pid)
}

func (c *Connection) frameWindow(windowID xproto.Window) (xproto.Window, error) {
	current := windowID
	for {
		tree, err := xproto.QueryTree(c.XUtil.Conn(), current).Reply()
		if err != nil {
			return 0, classify(err)
		}
		if tree.Parent == tree.Root || tree.Parent == 0 {
			return current, nil
		}
		current = tree.Parent
	}
}

func classify(err error) error {
	switch err.(type) {
	case xproto.WindowError, xproto.DrawableError:
		return fmt.Errorf("%w: %v", ErrBadWindow, err)
	}
	return err
}
