package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor is one active RandR CRTC. WorkArea is Bounds minus the space
// docks and panels reserve on it.
type Monitor struct {
	ID       int
	Name     string
	Bounds   Geometry
	WorkArea Geometry
}

// strut is space a dock reserves along one edge of the root window.
type strut struct {
	edge int
	area Geometry
}

const (
	edgeLeft = iota
	edgeRight
	edgeTop
	edgeBottom
)

// Monitors lists the active CRTCs with their work areas. Struts published by
// docks take precedence; _NET_WORKAREA is used when no dock reserves space.
func (c *Connection) Monitors() ([]Monitor, error) {
	xc := c.XUtil.Conn()
	res, err := randr.GetScreenResources(xc, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(xc, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		m := Monitor{
			ID:     i,
			Name:   fmt.Sprintf("crtc-%d", i),
			Bounds: Geometry{X: int(info.X), Y: int(info.Y), Width: int(info.Width), Height: int(info.Height)},
		}
		if out, err := randr.GetOutputInfo(xc, info.Outputs[0], res.ConfigTimestamp).Reply(); err == nil {
			m.Name = string(out.Name)
		}
		monitors = append(monitors, m)
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no active monitors")
	}

	struts := c.dockStruts()
	desktop := c.desktopWorkArea()
	for i := range monitors {
		m := &monitors[i]
		switch {
		case len(struts) > 0:
			m.WorkArea = trimStruts(m.Bounds, struts)
		case desktop != nil:
			if wa, ok := intersect(m.Bounds, *desktop); ok {
				m.WorkArea = wa
			} else {
				m.WorkArea = m.Bounds
			}
		default:
			m.WorkArea = m.Bounds
		}
	}
	return monitors, nil
}

// dockStruts collects the struts of every dock window in root coordinates.
func (c *Connection) dockStruts() []strut {
	root, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil
	}
	w, h := int(root.Width), int(root.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}
	var out []strut
	for _, win := range clients {
		if !c.hasType(win, "_NET_WM_WINDOW_TYPE_DOCK") {
			continue
		}
		sp, err := ewmh.WmStrutPartialGet(c.XUtil, win)
		if err != nil {
			// Older docks only set _NET_WM_STRUT, which spans the whole edge.
			s, err := ewmh.WmStrutGet(c.XUtil, win)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftEndY: uint(h - 1), RightEndY: uint(h - 1),
				TopEndX: uint(w - 1), BottomEndX: uint(w - 1),
			}
		}
		out = append(out, partialStruts(sp, w, h)...)
	}
	return out
}

func partialStruts(sp *ewmh.WmStrutPartial, rootW, rootH int) []strut {
	var out []strut
	if sp.Left > 0 {
		out = append(out, strut{edgeLeft, span(0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY)+1)})
	}
	if sp.Right > 0 {
		out = append(out, strut{edgeRight, span(rootW-int(sp.Right), int(sp.RightStartY), rootW, int(sp.RightEndY)+1)})
	}
	if sp.Top > 0 {
		out = append(out, strut{edgeTop, span(int(sp.TopStartX), 0, int(sp.TopEndX)+1, int(sp.Top))})
	}
	if sp.Bottom > 0 {
		out = append(out, strut{edgeBottom, span(int(sp.BottomStartX), rootH-int(sp.Bottom), int(sp.BottomEndX)+1, rootH)})
	}
	return out
}

// trimStruts shrinks bounds by the deepest strut overlapping each edge.
func trimStruts(bounds Geometry, struts []strut) Geometry {
	var reserve [4]int
	for _, s := range struts {
		o, ok := intersect(bounds, s.area)
		if !ok {
			continue
		}
		depth := o.Height
		if s.edge == edgeLeft || s.edge == edgeRight {
			depth = o.Width
		}
		if depth > reserve[s.edge] {
			reserve[s.edge] = depth
		}
	}
	return Geometry{
		X:      bounds.X + reserve[edgeLeft],
		Y:      bounds.Y + reserve[edgeTop],
		Width:  atLeastOne(bounds.Width - reserve[edgeLeft] - reserve[edgeRight]),
		Height: atLeastOne(bounds.Height - reserve[edgeTop] - reserve[edgeBottom]),
	}
}

// desktopWorkArea returns _NET_WORKAREA for the current desktop.
func (c *Connection) desktopWorkArea() *Geometry {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return nil
	}
	idx := 0
	if d, err := c.CurrentDesktop(); err == nil && d < len(areas) {
		idx = d
	}
	a := areas[idx]
	return &Geometry{X: int(a.X), Y: int(a.Y), Width: int(a.Width), Height: int(a.Height)}
}

func (c *Connection) hasType(win xproto.Window, want string) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func span(x1, y1, x2, y2 int) Geometry {
	return Geometry{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func intersect(a, b Geometry) (Geometry, bool) {
	x1, y1 := maxInt(a.X, b.X), maxInt(a.Y, b.Y)
	x2, y2 := minInt(a.X+a.Width, b.X+b.Width), minInt(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return Geometry{}, false
	}
	return span(x1, y1, x2, y2), true
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
