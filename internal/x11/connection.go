// Package x11 wraps the X11 requests keyshell needs: monitors, EWMH window
// control and passive key grabs.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection is one X11 display connection and its root window.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection opens $DISPLAY and initializes the keyboard mapping and
// RandR.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	keybind.Initialize(xu)
	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init: %w", err)
	}
	return &Connection{XUtil: xu, Root: xu.RootWin()}, nil
}

// EventLoop dispatches X events until Quit is called.
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// WatchScreenChanges calls fn on the event loop after every RandR screen,
// CRTC or output change. fn must not block.
func (c *Connection) WatchScreenChanges(fn func()) error {
	const mask = randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange
	if err := randr.SelectInputChecked(c.XUtil.Conn(), c.Root, mask).Check(); err != nil {
		return fmt.Errorf("randr select input: %w", err)
	}
	xevent.HookFun(func(_ *xgbutil.XUtil, ev interface{}) bool {
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			fn()
		}
		return true
	}).Connect(c.XUtil)
	return nil
}

func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
