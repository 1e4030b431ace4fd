package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// ClearKeyGrabs releases every passive key grab on the root window, including
// ones left behind by an earlier instance sharing this display connection.
func (c *Connection) ClearKeyGrabs() error {
	return xproto.UngrabKeyChecked(c.XUtil.Conn(), xproto.GrabAny, c.Root, xproto.ModMaskAny).Check()
}

// GrabKey installs a passive grab for mods+keycode on the root window for
// every ignored lock-modifier combination. A synchronous grab freezes the
// keyboard until ReplayKey or ReleaseKey is called for the event.
func (c *Connection) GrabKey(mods uint16, keycode xproto.Keycode, sync bool) error {
	kbMode := byte(xproto.GrabModeAsync)
	if sync {
		kbMode = xproto.GrabModeSync
	}
	for _, ignore := range xevent.IgnoreMods {
		err := xproto.GrabKeyChecked(c.XUtil.Conn(), true, c.Root,
			mods|ignore, keycode, xproto.GrabModeAsync, kbMode).Check()
		if err != nil {
			return fmt.Errorf("grab key %d mods %#x: %w", keycode, mods|ignore, err)
		}
	}
	return nil
}

// UngrabKey removes the grabs installed by GrabKey.
func (c *Connection) UngrabKey(mods uint16, keycode xproto.Keycode) {
	for _, ignore := range xevent.IgnoreMods {
		xproto.UngrabKey(c.XUtil.Conn(), keycode, c.Root, mods|ignore)
	}
}

// ReplayKey thaws a synchronous grab and delivers the event to the focused
// client as if it had not been grabbed.
func (c *Connection) ReplayKey(t xproto.Timestamp) {
	xproto.AllowEvents(c.XUtil.Conn(), xproto.AllowReplayKeyboard, t)
}

// ReleaseKey thaws a synchronous grab and keeps the event.
func (c *Connection) ReleaseKey(t xproto.Timestamp) {
	xproto.AllowEvents(c.XUtil.Conn(), xproto.AllowAsyncKeyboard, t)
}

// Keycodes resolves a keysym name such as "Left" or "t".
func (c *Connection) Keycodes(keysym string) []xproto.Keycode {
	return keybind.StrToKeycodes(c.XUtil, keysym)
}

// KeyName returns the unshifted keysym name for keycode.
func (c *Connection) KeyName(keycode xproto.Keycode) string {
	return keybind.LookupString(c.XUtil, 0, keycode)
}
