package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// allDesktops is the _NET_WM_DESKTOP value of sticky windows.
const allDesktops = 0xFFFFFFFF

// CurrentDesktop returns _NET_CURRENT_DESKTOP.
func (c *Connection) CurrentDesktop() (int, error) {
	d, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("current desktop: %w", err)
	}
	return int(d), nil
}

// WindowDesktop returns the desktop a window lives on, or -1 when it is
// shown on all of them.
func (c *Connection) WindowDesktop(win xproto.Window) (int, error) {
	d, err := ewmh.WmDesktopGet(c.XUtil, win)
	if err != nil {
		return 0, fmt.Errorf("window desktop: %w", err)
	}
	if d == allDesktops {
		return -1, nil
	}
	return int(d), nil
}

// Activate focuses and raises win. The request is built by hand; the
// xgbutil helper for _NET_ACTIVE_WINDOW panics with some window managers.
func (c *Connection) Activate(win xproto.Window) error {
	const fromPager = 2
	return c.clientMessage(win, "_NET_ACTIVE_WINDOW", fromPager)
}

// Iconify asks the window manager to minimize win.
func (c *Connection) Iconify(win xproto.Window) error {
	const iconicState = 3
	return c.clientMessage(win, "WM_CHANGE_STATE", iconicState)
}

// clientMessage sends a 32-bit client message about win to the root window.
func (c *Connection) clientMessage(win xproto.Window, atom string, data ...uint32) error {
	xc := c.XUtil.Conn()
	reply, err := xproto.InternAtom(xc, false, uint16(len(atom)), atom).Reply()
	if err != nil {
		return fmt.Errorf("intern %s: %w", atom, err)
	}
	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	return classify(xproto.SendEventChecked(xc, false, c.Root, mask, string(ev.Bytes())).Check())
}
