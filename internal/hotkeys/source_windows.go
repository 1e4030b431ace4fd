//go:build windows

package hotkeys

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/1broseidon/keyshell/internal/platform"
	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

const (
	whKeyboardLL = 13

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
)

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

var vkModifiers = map[uint32]Modifier{
	0x10: ModShift, 0xA0: ModShift, 0xA1: ModShift,
	0x11: ModCtrl, 0xA2: ModCtrl, 0xA3: ModCtrl,
	0x12: ModAlt, 0xA4: ModAlt, 0xA5: ModAlt,
	0x5B: ModSuper, 0x5C: ModSuper,
}

var vkNames = map[uint32]string{
	0x08: "backspace",
	0x09: "tab",
	0x0D: "enter",
	0x13: "pause",
	0x1B: "escape",
	0x20: "space",
	0x21: "pageup",
	0x22: "pagedown",
	0x23: "end",
	0x24: "home",
	0x25: "left",
	0x26: "up",
	0x27: "right",
	0x28: "down",
	0x2C: "print",
	0x2D: "insert",
	0x2E: "delete",
	0xBA: "semicolon",
	0xBB: "equal",
	0xBC: "comma",
	0xBD: "minus",
	0xBE: "period",
	0xBF: "slash",
	0xC0: "grave",
	0xDB: "bracketleft",
	0xDC: "backslash",
	0xDD: "bracketright",
	0xDE: "apostrophe",
}

// The hook callback is created once per process; the runtime caps the
// number of callbacks that can ever be allocated.
var (
	activeSource atomic.Pointer[WindowsSource]
	hookProc     = windows.NewCallback(lowLevelKeyboardProc)
)

// WindowsSource captures combinations with a WH_KEYBOARD_LL hook. The hook
// thread is the capture context.
type WindowsSource struct {
	mu       sync.Mutex
	match    MatchFunc
	threadID uint32
	done     chan struct{}
	running  bool
	stopped  bool

	// Touched only on the hook thread.
	held       map[uint32]Modifier
	suppressed map[uint32]bool
}

var _ Source = (*WindowsSource)(nil)

// NewWindowsSource returns an idle source.
func NewWindowsSource() *WindowsSource {
	return &WindowsSource{
		held:       make(map[uint32]Modifier),
		suppressed: make(map[uint32]bool),
	}
}

// NewSystemSource returns the capture source for backend.
func NewSystemSource(platform.Backend) (Source, error) {
	return NewWindowsSource(), nil
}

// Reset is a no-op: low-level hooks die with the process that set them.
func (s *WindowsSource) Reset() error { return nil }

func (s *WindowsSource) Start(match MatchFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	if s.running {
		return nil
	}
	if !activeSource.CompareAndSwap(nil, s) {
		return fmt.Errorf("another keyboard hook is already installed")
	}
	s.match = match

	ready := make(chan error, 1)
	s.done = make(chan struct{})
	go s.hookThread(ready)
	if err := <-ready; err != nil {
		activeSource.CompareAndSwap(s, nil)
		return err
	}
	s.running = true
	return nil
}

// Watch is a no-op; the hook observes every key.
func (s *WindowsSource) Watch(Combo, bool) error { return nil }

// Unwatch is a no-op; the hook observes every key.
func (s *WindowsSource) Unwatch(Combo) error { return nil }

func (s *WindowsSource) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	running, tid, done := s.running, s.threadID, s.done
	s.running = false
	s.mu.Unlock()

	if !running {
		return nil
	}
	r, _, err := procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
	if r == 0 {
		return fmt.Errorf("post quit to hook thread: %w", err)
	}
	<-done
	activeSource.CompareAndSwap(s, nil)
	return nil
}

func (s *WindowsSource) hookThread(ready chan<- error) {
	defer close(s.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Start holds s.mu until ready is signalled.
	s.threadID = windows.GetCurrentThreadId()

	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookProc, 0, 0)
	if hook == 0 {
		ready <- fmt.Errorf("SetWindowsHookExW: %w", err)
		return
	}
	defer procUnhookWindowsHookEx.Call(hook)
	ready <- nil

	var msg winMsg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
	}
}

func lowLevelKeyboardProc(nCode, wParam, lParam uintptr) uintptr {
	s := activeSource.Load()
	if int32(nCode) >= 0 && s != nil && lParam != 0 {
		info := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
		if s.handle(wParam, info.VkCode) {
			return 1
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

// handle reports whether the event must be swallowed.
func (s *WindowsSource) handle(wParam uintptr, vk uint32) bool {
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		if mod, ok := vkModifiers[vk]; ok {
			s.held[vk] = mod
			return false
		}
		key, ok := vkKey(vk)
		if !ok {
			return false
		}
		var mods Modifier
		for _, m := range s.held {
			mods |= m
		}

		s.mu.Lock()
		match := s.match
		s.mu.Unlock()
		if match == nil {
			return false
		}
		if _, suppress := match(Combo{Mods: mods, Key: key}); suppress {
			s.suppressed[vk] = true
			return true
		}
		return false

	case wmKeyUp, wmSysKeyUp:
		delete(s.held, vk)
		if s.suppressed[vk] {
			delete(s.suppressed, vk)
			return true
		}
	}
	return false
}

func vkKey(vk uint32) (string, bool) {
	switch {
	case vk >= 'A' && vk <= 'Z':
		return string(rune('a' + vk - 'A')), true
	case vk >= '0' && vk <= '9':
		return string(rune(vk)), true
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("f%d", vk-0x70+1), true
	}
	name, ok := vkNames[vk]
	return name, ok
}
