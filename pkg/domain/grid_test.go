package domain

import "testing"

func TestNewGridClampsDimensions(t *testing.T) {
	cases := []struct {
		rows, cols         int
		wantRows, wantCols int
	}{
		{0, 0, 1, 1},
		{-3, 5, 1, 5},
		{25, 40, 20, 20},
		{5, 8, 5, 8},
	}
	for _, tc := range cases {
		g := NewGrid(tc.rows, tc.cols)
		if g.Rows != tc.wantRows || g.Cols != tc.wantCols {
			t.Fatalf("NewGrid(%d,%d) = %dx%d, want %dx%d", tc.rows, tc.cols, g.Rows, g.Cols, tc.wantRows, tc.wantCols)
		}
		if g.Len() != tc.wantRows*tc.wantCols {
			t.Fatalf("expected %d cells, got %d", tc.wantRows*tc.wantCols, g.Len())
		}
	}
}

func TestIndexToCoordinate(t *testing.T) {
	g := NewGrid(5, 8)
	cases := map[int]Coordinate{
		0:  {Row: 0, Col: 0},
		7:  {Row: 0, Col: 7},
		8:  {Row: 1, Col: 0},
		39: {Row: 4, Col: 7},
	}
	for index, want := range cases {
		if got := g.IndexToCoordinate(index); got != want {
			t.Fatalf("IndexToCoordinate(%d) = %+v, want %+v", index, got, want)
		}
		back, ok := g.CoordinateToIndex(want.Row, want.Col)
		if !ok || back != index {
			t.Fatalf("CoordinateToIndex(%+v) = %d,%v want %d", want, back, ok, index)
		}
	}
	if _, ok := g.CoordinateToIndex(5, 0); ok {
		t.Fatalf("expected out of range row to fail")
	}
}

func TestLocateInstance(t *testing.T) {
	g := NewGrid(3, 3)
	g.Cells[4] = "a"
	g.Cells[7] = "b"
	if idx, ok := g.LocateInstance("b"); !ok || idx != 7 {
		t.Fatalf("expected b at 7, got %d,%v", idx, ok)
	}
	if _, ok := g.LocateInstance("missing"); ok {
		t.Fatalf("expected missing instance not found")
	}
	if _, ok := g.LocateInstance(""); ok {
		t.Fatalf("empty id must never be located")
	}
	if id, ok := g.Occupant(4); !ok || id != "a" {
		t.Fatalf("expected occupant a, got %q", id)
	}
	if _, ok := g.Occupant(99); ok {
		t.Fatalf("expected out of range occupant lookup to fail")
	}
}

func TestResizedShrinkDropsOutsideOverlap(t *testing.T) {
	g := NewGrid(5, 5)
	corner, _ := g.CoordinateToIndex(4, 4)
	keep, _ := g.CoordinateToIndex(1, 2)
	g.Cells[corner] = "corner"
	g.Cells[keep] = "keep"

	next := g.Resized(3, 3)
	if next.Rows != 3 || next.Cols != 3 || next.Len() != 9 {
		t.Fatalf("unexpected resized shape %dx%d (%d cells)", next.Rows, next.Cols, next.Len())
	}
	if _, ok := next.LocateInstance("corner"); ok {
		t.Fatalf("expected corner to be dropped")
	}
	idx, ok := next.LocateInstance("keep")
	if !ok || next.IndexToCoordinate(idx) != (Coordinate{Row: 1, Col: 2}) {
		t.Fatalf("expected keep to stay at (1,2), got %+v", next.IndexToCoordinate(idx))
	}
	orphans := g.Orphans(next)
	if len(orphans) != 1 || orphans[0] != "corner" {
		t.Fatalf("unexpected orphans %v", orphans)
	}
}

func TestResizedGrowPreservesCoordinates(t *testing.T) {
	g := NewGrid(5, 5)
	for i := range g.Cells {
		if i%3 == 0 {
			g.Cells[i] = string(rune('a' + i))
		}
	}
	next := g.Resized(5, 8)
	for i, id := range g.Cells {
		if id == "" {
			continue
		}
		at := g.IndexToCoordinate(i)
		idx, ok := next.LocateInstance(id)
		if !ok {
			t.Fatalf("lost %s on grow", id)
		}
		if next.IndexToCoordinate(idx) != at {
			t.Fatalf("%s moved from %+v to %+v", id, at, next.IndexToCoordinate(idx))
		}
	}
	if len(g.Orphans(next)) != 0 {
		t.Fatalf("grow must not orphan anything")
	}
}

func TestGridCloneIsIndependent(t *testing.T) {
	g := NewGrid(2, 2)
	cp := g.Clone()
	cp.Cells[0] = "x"
	if g.Cells[0] != "" {
		t.Fatalf("clone shares cell storage")
	}
}
