//go:build windows

package platform

import (
	"fmt"
	"sort"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procGetForegroundWindow        = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow        = user32.NewProc("SetForegroundWindow")
	procIsWindow                   = user32.NewProc("IsWindow")
	procIsWindowVisible            = user32.NewProc("IsWindowVisible")
	procIsIconic                   = user32.NewProc("IsIconic")
	procIsZoomed                   = user32.NewProc("IsZoomed")
	procGetWindowRect              = user32.NewProc("GetWindowRect")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
	procShowWindow                 = user32.NewProc("ShowWindow")
	procGetWindowLongW             = user32.NewProc("GetWindowLongW")
	procSetWindowLongW             = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procGetLayeredWindowAttributes = user32.NewProc("GetLayeredWindowAttributes")
	procEnumDisplayMonitors        = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW            = user32.NewProc("GetMonitorInfoW")
	procEnumWindows                = user32.NewProc("EnumWindows")
	procGetWindowTextW             = user32.NewProc("GetWindowTextW")
	procGetClassNameW              = user32.NewProc("GetClassNameW")
	procGetWindowThreadProcessId   = user32.NewProc("GetWindowThreadProcessId")
)

const (
	gwlExStyle = -20

	wsExTopmost    = 0x00000008
	wsExToolWindow = 0x00000080
	wsExLayered    = 0x00080000

	lwaAlpha = 0x2

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010

	swMinimize = 6
	swRestore  = 9
)

var (
	hwndTopmost   = ^uintptr(0)     // (HWND)-1
	hwndNoTopmost = ^uintptr(0) - 1 // (HWND)-2
)

// Callbacks are allocated once; the runtime caps how many may exist per
// process. enumMu guards the slices they append to.
var (
	enumMu       sync.Mutex
	enumDisplays []Display
	enumWindows  []WindowID

	monitorEnumProc = windows.NewCallback(func(hmon, hdc uintptr, clip *winRect, data uintptr) uintptr {
		info := monitorInfoEx{CbSize: uint32(unsafe.Sizeof(monitorInfoEx{}))}
		r, _, _ := procGetMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&info)))
		if r == 0 {
			return 1
		}
		enumDisplays = append(enumDisplays, Display{
			ID:     len(enumDisplays),
			Name:   windows.UTF16ToString(info.SzDevice[:]),
			Bounds: rectFromWin(info.RcMonitor),
			Usable: rectFromWin(info.RcWork),
		})
		return 1
	})

	windowEnumProc = windows.NewCallback(func(hwnd, lparam uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1
		}
		if iconic, _, _ := procIsIconic.Call(hwnd); iconic != 0 {
			return 1
		}
		if exStyle(hwnd)&wsExToolWindow != 0 {
			return 1
		}
		if windowText(hwnd) == "" {
			return 1
		}
		enumWindows = append(enumWindows, WindowID(hwnd))
		return 1
	})
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type monitorInfoEx struct {
	CbSize    uint32
	RcMonitor winRect
	RcWork    winRect
	DwFlags   uint32
	SzDevice  [32]uint16
}

// WindowsBackend drives top-level windows through user32.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// NewWindowsBackend returns a backend for the current desktop session.
func NewWindowsBackend() *WindowsBackend {
	return &WindowsBackend{}
}

// NewDefault opens the backend for the running window system.
func NewDefault() (Backend, error) {
	return NewWindowsBackend(), nil
}

// Displays enumerates monitors ordered left to right.
func (b *WindowsBackend) Displays() ([]Display, error) {
	enumMu.Lock()
	enumDisplays = nil
	r, _, err := procEnumDisplayMonitors.Call(0, 0, monitorEnumProc, 0)
	displays := enumDisplays
	enumDisplays = nil
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("enum display monitors: %w", err)
	}
	if len(displays) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	sort.SliceStable(displays, func(i, j int) bool {
		if displays[i].Usable.X != displays[j].Usable.X {
			return displays[i].Usable.X < displays[j].Usable.X
		}
		return displays[i].Usable.Y < displays[j].Usable.Y
	})
	return displays, nil
}

// ActiveWindow returns the foreground window.
func (b *WindowsBackend) ActiveWindow() (WindowID, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return WindowID(hwnd), nil
}

// Window returns metadata and geometry for one window.
func (b *WindowsBackend) Window(windowID WindowID) (Window, error) {
	hwnd, err := alive(windowID)
	if err != nil {
		return Window{}, err
	}
	var rect winRect
	if r, _, callErr := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect))); r == 0 {
		return Window{}, fmt.Errorf("get window rect: %w", callErr)
	}
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return Window{
		ID:     windowID,
		PID:    int(pid),
		AppID:  className(hwnd),
		Title:  windowText(hwnd),
		Bounds: rectFromWin(rect),
	}, nil
}

// ListWindows lists visible, titled, non-tool top-level windows.
func (b *WindowsBackend) ListWindows() ([]Window, error) {
	enumMu.Lock()
	enumWindows = nil
	r, _, err := procEnumWindows.Call(windowEnumProc, 0)
	ids := enumWindows
	enumWindows = nil
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("enum windows: %w", err)
	}

	out := make([]Window, 0, len(ids))
	for _, id := range ids {
		w, err := b.Window(id)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// MoveResize restores a maximized window and positions it.
func (b *WindowsBackend) MoveResize(windowID WindowID, bounds Rect) error {
	hwnd, err := alive(windowID)
	if err != nil {
		return err
	}
	if zoomed, _, _ := procIsZoomed.Call(hwnd); zoomed != 0 {
		procShowWindow.Call(hwnd, swRestore)
	}
	r, _, callErr := procSetWindowPos.Call(hwnd, 0,
		intArg(bounds.X), intArg(bounds.Y), intArg(bounds.Width), intArg(bounds.Height),
		swpNoZOrder|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("set window pos: %w", callErr)
	}
	return nil
}

// Opacity reads the layered-window alpha, 255 when not layered.
func (b *WindowsBackend) Opacity(windowID WindowID) (uint8, error) {
	hwnd, err := alive(windowID)
	if err != nil {
		return 0, err
	}
	if exStyle(hwnd)&wsExLayered == 0 {
		return OpaqueLevel, nil
	}
	var key uint32
	var alpha byte
	var flags uint32
	r, _, _ := procGetLayeredWindowAttributes.Call(hwnd,
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&alpha)), uintptr(unsafe.Pointer(&flags)))
	if r == 0 || flags&lwaAlpha == 0 {
		return OpaqueLevel, nil
	}
	return alpha, nil
}

// SetOpacity marks the window layered and applies alpha.
func (b *WindowsBackend) SetOpacity(windowID WindowID, level uint8) error {
	hwnd, err := alive(windowID)
	if err != nil {
		return err
	}
	style := exStyle(hwnd)
	if style&wsExLayered == 0 {
		idx := int32(gwlExStyle)
		procSetWindowLongW.Call(hwnd, uintptr(idx), uintptr(style|wsExLayered))
	}
	r, _, callErr := procSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(level), lwaAlpha)
	if r == 0 {
		return fmt.Errorf("set layered window attributes: %w", callErr)
	}
	return nil
}

// AlwaysOnTop reports WS_EX_TOPMOST.
func (b *WindowsBackend) AlwaysOnTop(windowID WindowID) (bool, error) {
	hwnd, err := alive(windowID)
	if err != nil {
		return false, err
	}
	return exStyle(hwnd)&wsExTopmost != 0, nil
}

// SetAlwaysOnTop moves the window into or out of the topmost band.
func (b *WindowsBackend) SetAlwaysOnTop(windowID WindowID, enabled bool) error {
	hwnd, err := alive(windowID)
	if err != nil {
		return err
	}
	after := hwndNoTopmost
	if enabled {
		after = hwndTopmost
	}
	r, _, callErr := procSetWindowPos.Call(hwnd, after, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("set window pos: %w", callErr)
	}
	return nil
}

// Minimize iconifies a window.
func (b *WindowsBackend) Minimize(windowID WindowID) error {
	hwnd, err := alive(windowID)
	if err != nil {
		return err
	}
	procShowWindow.Call(hwnd, swMinimize)
	return nil
}

// Focus brings a window to the foreground.
func (b *WindowsBackend) Focus(windowID WindowID) error {
	hwnd, err := alive(windowID)
	if err != nil {
		return err
	}
	if r, _, callErr := procSetForegroundWindow.Call(hwnd); r == 0 {
		return fmt.Errorf("set foreground window: %w", callErr)
	}
	return nil
}

func alive(windowID WindowID) (uintptr, error) {
	hwnd := uintptr(windowID)
	if r, _, _ := procIsWindow.Call(hwnd); r == 0 {
		return 0, fmt.Errorf("%w: hwnd %#x", ErrWindowGone, hwnd)
	}
	return hwnd, nil
}

func exStyle(hwnd uintptr) uint32 {
	idx := int32(gwlExStyle)
	r, _, _ := procGetWindowLongW.Call(hwnd, uintptr(idx))
	return uint32(r)
}

func windowText(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return syscall.UTF16ToString(buf[:n])
}

func className(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return syscall.UTF16ToString(buf[:n])
}

func rectFromWin(r winRect) Rect {
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}

func intArg(v int) uintptr {
	return uintptr(int32(v))
}
