package tiling

import "testing"

var fullHD = Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

func TestCompute_HalvesReconstructWorkArea(t *testing.T) {
	areas := []Rect{
		fullHD,
		{X: 1920, Y: 24, Width: 1281, Height: 1000},
		{X: -1280, Y: 0, Width: 1280, Height: 1024},
	}
	for _, area := range areas {
		left := Compute(LeftHalf, area, Options{})
		right := Compute(RightHalf, area, Options{})

		if left.X != area.X || left.Y != area.Y || left.Height != area.Height {
			t.Fatalf("left half %v not anchored to %v", left, area)
		}
		if right.X != left.X+left.Width {
			t.Fatalf("right half %v does not start where left %v ends", right, left)
		}
		if left.Width+right.Width != area.Width {
			t.Fatalf("halves %v + %v do not cover width %d", left, right, area.Width)
		}
	}
}

func TestCompute_TileModes(t *testing.T) {
	tests := []struct {
		name string
		mode TileMode
		want Rect
	}{
		{"left", LeftHalf, Rect{0, 0, 960, 1080}},
		{"right", RightHalf, Rect{960, 0, 960, 1080}},
		{"maximize", Maximize, fullHD},
		{"center", Center, Rect{384, 216, 1152, 648}},
		{"center small", CenterSmall, Rect{480, 216, 960, 648}},
		{"top", TopHalf, Rect{0, 0, 1920, 540}},
		{"bottom", BottomHalf, Rect{0, 540, 1920, 540}},
		{"left third", LeftThird, Rect{0, 0, 640, 1080}},
		{"center third", CenterThird, Rect{640, 0, 640, 1080}},
		{"right third", RightThird, Rect{1280, 0, 640, 1080}},
		{"left two thirds", LeftTwoThirds, Rect{0, 0, 1280, 1080}},
		{"right two thirds", RightTwoThirds, Rect{640, 0, 1280, 1080}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.mode, fullHD, Options{})
			if got != tt.want {
				t.Fatalf("Compute(%s) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestCompute_CenterPercentOverride(t *testing.T) {
	got := Compute(Center, Rect{0, 0, 1000, 1000}, Options{CenterPercent: 80})
	want := Rect{100, 100, 800, 800}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCompute_QuadrantsPartitionWorkArea(t *testing.T) {
	area := Rect{X: 100, Y: 50, Width: 1600, Height: 900}
	quads := []GridQuadrant{TopLeft, TopRight, BottomLeft, BottomRight}

	cells := make([]Rect, 0, len(quads))
	total := 0
	for _, q := range quads {
		r := Compute(q, area, Options{})
		if r.Width != 800 || r.Height != 450 {
			t.Fatalf("%s = %v, want 800x450 cell", q, r)
		}
		if !r.Contains(area) {
			t.Fatalf("%s = %v escapes %v", q, r, area)
		}
		cells = append(cells, r)
		total += r.Width * r.Height
	}
	if total != area.Width*area.Height {
		t.Fatalf("cells cover %d px, want %d", total, area.Width*area.Height)
	}
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			if overlapArea(cells[i], cells[j]) != 0 {
				t.Fatalf("cells %v and %v overlap", cells[i], cells[j])
			}
		}
	}
	if cells[1].X != 900 || cells[2].Y != 500 {
		t.Fatalf("unexpected origins: %v", cells)
	}
}

func TestCompute_AlwaysInsideWorkArea(t *testing.T) {
	areas := []Rect{fullHD, {X: 3, Y: 7, Width: 11, Height: 5}, {X: 0, Y: 0, Width: 1, Height: 1}}
	placements := []Placement{
		LeftHalf, RightHalf, Maximize, Center, TopHalf, BottomHalf, LeftThird, CenterThird,
		RightThird, LeftTwoThirds, RightTwoThirds, CenterSmall,
		TopLeft, TopRight, BottomLeft, BottomRight,
		GridCell{Row: 1, Col: 2, Rows: 2, Cols: 3},
		GridCell{Row: 9, Col: 9, Rows: 2, Cols: 3},
	}
	opts := []Options{{}, {Gap: 10, Margin: 15}, {Gap: 50}}
	for _, area := range areas {
		for _, p := range placements {
			for _, o := range opts {
				r := Compute(p, area, o)
				if !r.Contains(area) {
					t.Fatalf("Compute(%s, %v, %+v) = %v escapes area", p, area, o, r)
				}
				if r.Width < 1 || r.Height < 1 {
					t.Fatalf("Compute(%s, %v, %+v) = %v is empty", p, area, o, r)
				}
			}
		}
	}
}

func TestCompute_GapAndMargin(t *testing.T) {
	opts := Options{Gap: 10, Margin: 15}
	left := Compute(LeftHalf, fullHD, opts)
	right := Compute(RightHalf, fullHD, opts)

	if left.X != 15 || left.Y != 15 || left.Height != 1050 {
		t.Fatalf("left = %v", left)
	}
	if right.X-(left.X+left.Width) != 10 {
		t.Fatalf("gap between %v and %v is not 10", left, right)
	}
	if right.X+right.Width != 1905 {
		t.Fatalf("right edge = %d, want 1905", right.X+right.Width)
	}
}

func TestGridCell_SixGrid(t *testing.T) {
	seen := 0
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			r := Compute(GridCell{Row: row, Col: col, Rows: 2, Cols: 3}, fullHD, Options{})
			if r.Width != 640 || r.Height != 540 {
				t.Fatalf("cell (%d,%d) = %v", row, col, r)
			}
			seen += r.Width * r.Height
		}
	}
	if seen != 1920*1080 {
		t.Fatalf("grid covers %d px", seen)
	}
}

func TestTranslate_KeepsRelativePosition(t *testing.T) {
	from := Rect{0, 0, 1920, 1080}
	to := Rect{1920, 0, 2560, 1440}
	got := Translate(Rect{960, 0, 960, 1080}, from, to)
	want := Rect{3200, 0, 1280, 1440}
	if got != want {
		t.Fatalf("Translate = %v, want %v", got, want)
	}
}

func TestClamp_ShrinksOversizedRect(t *testing.T) {
	got := Clamp(Rect{-50, -50, 5000, 5000}, fullHD)
	if got != fullHD {
		t.Fatalf("Clamp = %v, want %v", got, fullHD)
	}
}

func TestCalculatePositions_Grid(t *testing.T) {
	positions := CalculatePositions(3, Rect{0, 0, 200, 100}, Options{})
	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}
	want := []Rect{{0, 0, 100, 50}, {100, 0, 100, 50}, {0, 50, 100, 50}}
	for i := range want {
		if positions[i] != want[i] {
			t.Fatalf("position %d = %v, want %v", i, positions[i], want[i])
		}
	}
}

func TestParseTileMode(t *testing.T) {
	mode, err := ParseTileMode(" Left_Half ")
	if err != nil || mode != LeftHalf {
		t.Fatalf("ParseTileMode = %v, %v", mode, err)
	}
	if _, err := ParseTileMode("diagonal"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	q, err := ParseQuadrant("bottom_right")
	if err != nil || q != BottomRight {
		t.Fatalf("ParseQuadrant = %v, %v", q, err)
	}
}
