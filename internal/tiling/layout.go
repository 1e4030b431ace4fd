package tiling

import (
	"fmt"
	"math"
	"strings"
)

// Rect represents a window position and size
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether r lies entirely inside outer.
func (r Rect) Contains(outer Rect) bool {
	return r.X >= outer.X && r.Y >= outer.Y &&
		r.X+r.Width <= outer.X+outer.Width &&
		r.Y+r.Height <= outer.Y+outer.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Options tunes placement math. The zero value means no gap, no margin and
// a 60% centered window.
type Options struct {
	Gap           int
	Margin        int
	CenterPercent int
}

const defaultCenterPercent = 60

// Placement is a target description understood by Compute. The set is
// closed: TileMode, GridQuadrant and GridCell.
type Placement interface {
	place(area Rect, opts Options) Rect
	String() string
}

// TileMode is a whole-window placement on a single monitor.
type TileMode int

const (
	LeftHalf TileMode = iota
	RightHalf
	Maximize
	Center
	TopHalf
	BottomHalf
	LeftThird
	CenterThird
	RightThird
	LeftTwoThirds
	RightTwoThirds
	CenterSmall
)

var tileModeNames = map[TileMode]string{
	LeftHalf:       "left_half",
	RightHalf:      "right_half",
	Maximize:       "maximize",
	Center:         "center",
	TopHalf:        "top_half",
	BottomHalf:     "bottom_half",
	LeftThird:      "left_third",
	CenterThird:    "center_third",
	RightThird:     "right_third",
	LeftTwoThirds:  "left_two_thirds",
	RightTwoThirds: "right_two_thirds",
	CenterSmall:    "center_small",
}

func (m TileMode) String() string {
	if name, ok := tileModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("tile_mode(%d)", int(m))
}

// ParseTileMode maps a config name such as "left_half" to a TileMode.
func ParseTileMode(name string) (TileMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mode, n := range tileModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown tile mode %q", name)
}

func (m TileMode) place(area Rect, opts Options) Rect {
	gap := opts.Gap
	x, y, w, h := area.X, area.Y, area.Width, area.Height

	switch m {
	case LeftHalf:
		left := (w - gap) / 2
		return Rect{X: x, Y: y, Width: left, Height: h}
	case RightHalf:
		left := (w - gap) / 2
		return Rect{X: x + left + gap, Y: y, Width: w - left - gap, Height: h}
	case TopHalf:
		top := (h - gap) / 2
		return Rect{X: x, Y: y, Width: w, Height: top}
	case BottomHalf:
		top := (h - gap) / 2
		return Rect{X: x, Y: y + top + gap, Width: w, Height: h - top - gap}
	case LeftThird:
		third := (w - 2*gap) / 3
		return Rect{X: x, Y: y, Width: third, Height: h}
	case CenterThird:
		third := (w - 2*gap) / 3
		return Rect{X: x + third + gap, Y: y, Width: third, Height: h}
	case RightThird:
		third := (w - 2*gap) / 3
		start := 2 * (third + gap)
		return Rect{X: x + start, Y: y, Width: w - start, Height: h}
	case LeftTwoThirds:
		third := (w - 2*gap) / 3
		return Rect{X: x, Y: y, Width: 2*third + gap, Height: h}
	case RightTwoThirds:
		third := (w - 2*gap) / 3
		start := third + gap
		return Rect{X: x + start, Y: y, Width: w - start, Height: h}
	case Maximize:
		return area
	case Center:
		pct := opts.CenterPercent
		if pct <= 0 || pct > 100 {
			pct = defaultCenterPercent
		}
		return centered(area, pct, pct)
	case CenterSmall:
		return centered(area, 50, 60)
	default:
		return area
	}
}

func centered(area Rect, widthPct, heightPct int) Rect {
	cw := area.Width * widthPct / 100
	ch := area.Height * heightPct / 100
	return Rect{
		X:      area.X + (area.Width-cw)/2,
		Y:      area.Y + (area.Height-ch)/2,
		Width:  cw,
		Height: ch,
	}
}

// GridQuadrant is one of the four corner cells of a 2x2 split.
type GridQuadrant int

const (
	TopLeft GridQuadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

var quadrantNames = map[GridQuadrant]string{
	TopLeft:     "top_left",
	TopRight:    "top_right",
	BottomLeft:  "bottom_left",
	BottomRight: "bottom_right",
}

func (q GridQuadrant) String() string {
	if name, ok := quadrantNames[q]; ok {
		return name
	}
	return fmt.Sprintf("quadrant(%d)", int(q))
}

// ParseQuadrant maps a config name such as "top_left" to a GridQuadrant.
func ParseQuadrant(name string) (GridQuadrant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for q, n := range quadrantNames {
		if n == name {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown grid quadrant %q", name)
}

func (q GridQuadrant) place(area Rect, opts Options) Rect {
	row, col := 0, 0
	switch q {
	case TopRight:
		col = 1
	case BottomLeft:
		row = 1
	case BottomRight:
		row, col = 1, 1
	}
	return GridCell{Row: row, Col: col, Rows: 2, Cols: 2}.place(area, opts)
}

// GridCell addresses one cell of an arbitrary rows x cols grid.
type GridCell struct {
	Row  int
	Col  int
	Rows int
	Cols int
}

func (c GridCell) String() string {
	return fmt.Sprintf("grid(%d,%d of %dx%d)", c.Row, c.Col, c.Rows, c.Cols)
}

func (c GridCell) place(area Rect, opts Options) Rect {
	rows, cols := c.Rows, c.Cols
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	row := clampInt(c.Row, 0, rows-1)
	col := clampInt(c.Col, 0, cols-1)
	gap := opts.Gap

	cellW := (area.Width - gap*(cols-1)) / cols
	cellH := (area.Height - gap*(rows-1)) / rows

	x := area.X + col*(cellW+gap)
	y := area.Y + row*(cellH+gap)
	w, h := cellW, cellH
	// The last row and column absorb the integer remainder.
	if col == cols-1 {
		w = area.X + area.Width - x
	}
	if row == rows-1 {
		h = area.Y + area.Height - y
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Compute returns the rectangle for p inside workArea. The result is
// integer aligned and always lies inside workArea.
func Compute(p Placement, workArea Rect, opts Options) Rect {
	area := inset(workArea, opts.Margin)
	return Clamp(p.place(area, opts), workArea)
}

func inset(r Rect, margin int) Rect {
	if margin <= 0 || 2*margin >= r.Width || 2*margin >= r.Height {
		return r
	}
	return Rect{
		X:      r.X + margin,
		Y:      r.Y + margin,
		Width:  r.Width - 2*margin,
		Height: r.Height - 2*margin,
	}
}

// Clamp fits r inside area, shrinking it when it is larger than area.
func Clamp(r Rect, area Rect) Rect {
	if area.Width <= 0 || area.Height <= 0 {
		return Rect{X: area.X, Y: area.Y}
	}
	r.Width = clampInt(r.Width, 1, area.Width)
	r.Height = clampInt(r.Height, 1, area.Height)
	r.X = clampInt(r.X, area.X, area.X+area.Width-r.Width)
	r.Y = clampInt(r.Y, area.Y, area.Y+area.Height-r.Height)
	return r
}

// Translate maps r from one work-area to another, preserving its relative
// offset and size as fractions of the source area.
func Translate(r Rect, from, to Rect) Rect {
	if from.Width <= 0 || from.Height <= 0 {
		return Clamp(r, to)
	}
	relX := float64(r.X-from.X) / float64(from.Width)
	relY := float64(r.Y-from.Y) / float64(from.Height)
	relW := float64(r.Width) / float64(from.Width)
	relH := float64(r.Height) / float64(from.Height)

	out := Rect{
		X:      to.X + int(math.Round(relX*float64(to.Width))),
		Y:      to.Y + int(math.Round(relY*float64(to.Height))),
		Width:  int(math.Round(relW * float64(to.Width))),
		Height: int(math.Round(relH * float64(to.Height))),
	}
	return Clamp(out, to)
}

// CalculateGrid determines the optimal grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Calculate columns first (ceiling of square root)
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))

	// Calculate rows needed
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// CalculatePositions lays out numWindows cells in an auto-sized grid
// covering the work-area. Positions are returned in row-major order.
func CalculatePositions(numWindows int, workArea Rect, opts Options) []Rect {
	if numWindows <= 0 {
		return nil
	}
	rows, cols := CalculateGrid(numWindows)
	positions := make([]Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		cell := GridCell{Row: i / cols, Col: i % cols, Rows: rows, Cols: cols}
		positions[i] = Compute(cell, workArea, opts)
	}
	return positions
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
