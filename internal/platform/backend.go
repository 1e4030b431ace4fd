package platform

import "errors"

// ErrWindowGone is returned when the target window was destroyed between
// lookup and use.
var ErrWindowGone = errors.New("window no longer exists")

// ErrUnsupported is returned by backends that cannot perform an operation on
// the current window system.
var ErrUnsupported = errors.New("operation not supported on this platform")

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Center returns the midpoint of r.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ContainsPoint reports whether (x, y) falls inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	PID    int
	AppID  string
	Title  string
	Bounds Rect
}

// OpaqueLevel is the fully opaque transparency level.
const OpaqueLevel uint8 = 255

// Backend abstracts window-system operations across platforms.
//
// Methods taking a WindowID return an error wrapping ErrWindowGone when the
// window no longer exists.
type Backend interface {
	Displays() ([]Display, error)
	ActiveWindow() (WindowID, error)
	Window(windowID WindowID) (Window, error)
	ListWindows() ([]Window, error)
	MoveResize(windowID WindowID, bounds Rect) error
	Opacity(windowID WindowID) (uint8, error)
	SetOpacity(windowID WindowID, level uint8) error
	AlwaysOnTop(windowID WindowID) (bool, error)
	SetAlwaysOnTop(windowID WindowID, enabled bool) error
	Minimize(windowID WindowID) error
	Focus(windowID WindowID) error
}

// ScreenWatcher is implemented by backends that can report display
// configuration changes. fn runs on the backend's event context and must
// not block.
type ScreenWatcher interface {
	WatchScreenChanges(fn func()) error
}
