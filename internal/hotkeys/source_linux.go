//go:build linux

package hotkeys

import (
	"fmt"
	"strings"
	"sync"

	"github.com/1broseidon/keyshell/internal/platform"
	"github.com/1broseidon/keyshell/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// x11KeysymNames maps normalized key tokens to X keysym names where the two
// differ. Every other token is already a valid keysym name.
var x11KeysymNames = map[string]string{
	"left":      "Left",
	"right":     "Right",
	"up":        "Up",
	"down":      "Down",
	"enter":     "Return",
	"tab":       "Tab",
	"escape":    "Escape",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"print":     "Print",
	"pause":     "Pause",
}

const x11ModMask = xproto.ModMaskControl | xproto.ModMaskShift | xproto.ModMask1 | xproto.ModMask4

var ignoreModsOnce sync.Once

type x11Grab struct {
	mods     uint16
	keycodes []xproto.Keycode
	suppress bool
}

// X11Source captures combinations through passive grabs on the root window.
// Suppressed combos are grabbed asynchronously; pass-through combos use a
// synchronous grab and are replayed to the focused client after matching.
type X11Source struct {
	conn *x11.Connection

	mu      sync.Mutex
	match   MatchFunc
	grabs   map[Combo]x11Grab
	running bool
	stopped bool
	done    chan struct{}
}

var _ Source = (*X11Source)(nil)

// NewX11Source creates a source on conn.
func NewX11Source(conn *x11.Connection) *X11Source {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})
	return &X11Source{conn: conn, grabs: make(map[Combo]x11Grab)}
}

// NewSystemSource returns the capture source for backend.
func NewSystemSource(backend platform.Backend) (Source, error) {
	accessor, ok := backend.(interface{ Connection() *x11.Connection })
	if !ok || accessor.Connection() == nil {
		return nil, fmt.Errorf("backend %T has no X11 connection", backend)
	}
	return NewX11Source(accessor.Connection()), nil
}

func (s *X11Source) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grabs = make(map[Combo]x11Grab)
	return s.conn.ClearKeyGrabs()
}

// Start connects the key press handler and runs the X event loop on its own
// goroutine. That goroutine is the capture context.
func (s *X11Source) Start(match MatchFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	if s.running {
		return nil
	}
	s.match = match

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		s.handleKeyPress(ev)
	}).Connect(s.conn.XUtil, s.conn.Root)

	s.running = true
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.conn.EventLoop()
	}()
	return nil
}

func (s *X11Source) Watch(c Combo, suppress bool) error {
	name := keysymName(c.Key)
	keycodes := s.conn.Keycodes(name)
	if len(keycodes) == 0 {
		return fmt.Errorf("no keycode for keysym %q", name)
	}
	g := x11Grab{mods: x11Mods(c.Mods), keycodes: keycodes, suppress: suppress}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, had := s.grabs[c]
	// Re-grabbing a key this client holds replaces the grab mode.
	for _, kc := range keycodes {
		if err := s.conn.GrabKey(g.mods, kc, !suppress); err != nil {
			s.ungrab(g)
			if had {
				s.grab(old)
			}
			return err
		}
	}
	s.grabs[c] = g
	return nil
}

func (s *X11Source) Unwatch(c Combo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grabs[c]
	if !ok {
		return nil
	}
	s.ungrab(g)
	delete(s.grabs, c)
	return nil
}

func (s *X11Source) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for c, g := range s.grabs {
		s.ungrab(g)
		delete(s.grabs, c)
	}
	xevent.Detach(s.conn.XUtil, s.conn.Root)
	running, done := s.running, s.done
	s.running = false
	s.match = nil
	s.mu.Unlock()

	if running {
		s.conn.Quit()
		<-done
	}
	return nil
}

func (s *X11Source) grab(g x11Grab) {
	for _, kc := range g.keycodes {
		s.conn.GrabKey(g.mods, kc, !g.suppress)
	}
}

func (s *X11Source) ungrab(g x11Grab) {
	for _, kc := range g.keycodes {
		s.conn.UngrabKey(g.mods, kc)
	}
}

func (s *X11Source) handleKeyPress(ev xevent.KeyPressEvent) {
	combo, ok := s.comboFor(ev.Detail, ev.State)

	s.mu.Lock()
	match := s.match
	g, grabbed := s.grabs[combo]
	s.mu.Unlock()

	suppress := false
	if ok && match != nil {
		_, suppress = match(combo)
	}

	if grabbed && !g.suppress {
		if suppress {
			s.conn.ReleaseKey(ev.Time)
		} else {
			s.conn.ReplayKey(ev.Time)
		}
	}
}

func (s *X11Source) comboFor(keycode xproto.Keycode, state uint16) (Combo, bool) {
	key, err := normalizeKey(strings.ToLower(s.conn.KeyName(keycode)))
	if err != nil {
		return Combo{}, false
	}
	var mods Modifier
	state &= x11ModMask
	if state&xproto.ModMaskControl != 0 {
		mods |= ModCtrl
	}
	if state&xproto.ModMask1 != 0 {
		mods |= ModAlt
	}
	if state&xproto.ModMaskShift != 0 {
		mods |= ModShift
	}
	if state&xproto.ModMask4 != 0 {
		mods |= ModSuper
	}
	return Combo{Mods: mods, Key: key}, true
}

func keysymName(key string) string {
	if name, ok := x11KeysymNames[key]; ok {
		return name
	}
	if isFunctionKey(key) {
		return "F" + key[1:]
	}
	return key
}

func x11Mods(m Modifier) uint16 {
	var mask uint16
	if m&ModCtrl != 0 {
		mask |= xproto.ModMaskControl
	}
	if m&ModAlt != 0 {
		mask |= xproto.ModMask1
	}
	if m&ModShift != 0 {
		mask |= xproto.ModMaskShift
	}
	if m&ModSuper != 0 {
		mask |= xproto.ModMask4
	}
	return mask
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
