package domain

// Grid dimension bounds and defaults.
const (
	MinGridDimension = 1
	MaxGridDimension = 20
	DefaultGridRows  = 5
	DefaultGridCols  = 5
)

// Coordinate is a zero-based (row, column) cell position.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is a row-major array of cells. An empty string marks an empty cell;
// any other value is the id of the instance occupying it.
type Grid struct {
	Rows  int
	Cols  int
	Cells []string
}

// ClampDimension bounds a grid dimension to [MinGridDimension, MaxGridDimension].
func ClampDimension(n int) int {
	if n < MinGridDimension {
		return MinGridDimension
	}
	if n > MaxGridDimension {
		return MaxGridDimension
	}
	return n
}

// NewGrid allocates an empty grid with clamped dimensions.
func NewGrid(rows, cols int) Grid {
	rows, cols = ClampDimension(rows), ClampDimension(cols)
	return Grid{Rows: rows, Cols: cols, Cells: make([]string, rows*cols)}
}

// Clone returns a copy that shares no cell storage with g.
func (g Grid) Clone() Grid {
	cp := g
	cp.Cells = make([]string, len(g.Cells))
	copy(cp.Cells, g.Cells)
	return cp
}

// Len returns the number of cells.
func (g Grid) Len() int { return len(g.Cells) }

// InBounds reports whether index addresses a cell.
func (g Grid) InBounds(index int) bool {
	return index >= 0 && index < len(g.Cells)
}

// IndexToCoordinate maps a linear cell index to its row and column.
func (g Grid) IndexToCoordinate(index int) Coordinate {
	if g.Cols <= 0 {
		return Coordinate{}
	}
	return Coordinate{Row: index / g.Cols, Col: index % g.Cols}
}

// CoordinateToIndex maps (row, col) to a linear index.
func (g Grid) CoordinateToIndex(row, col int) (int, bool) {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return 0, false
	}
	return row*g.Cols + col, true
}

// Occupant returns the instance id bound to index, if any.
func (g Grid) Occupant(index int) (string, bool) {
	if !g.InBounds(index) || g.Cells[index] == "" {
		return "", false
	}
	return g.Cells[index], true
}

// LocateInstance returns the first cell index referencing id.
func (g Grid) LocateInstance(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for i, cell := range g.Cells {
		if cell == id {
			return i, true
		}
	}
	return 0, false
}

// Referenced returns the set of instance ids present in any cell.
func (g Grid) Referenced() map[string]struct{} {
	out := make(map[string]struct{})
	for _, cell := range g.Cells {
		if cell != "" {
			out[cell] = struct{}{}
		}
	}
	return out
}

// Resized returns a new grid with clamped dimensions whose top-left overlap
// with g keeps every cell at its original (row, col). Cells outside the
// overlap are dropped; callers are responsible for the orphaned instances.
func (g Grid) Resized(rows, cols int) Grid {
	out := NewGrid(rows, cols)
	minRows := min(g.Rows, out.Rows)
	minCols := min(g.Cols, out.Cols)
	for r := 0; r < minRows; r++ {
		for c := 0; c < minCols; c++ {
			oldIndex := r*g.Cols + c
			if oldIndex >= len(g.Cells) {
				continue
			}
			out.Cells[r*out.Cols+c] = g.Cells[oldIndex]
		}
	}
	return out
}

// Orphans lists, in cell order, the ids referenced by g but not by next.
func (g Grid) Orphans(next Grid) []string {
	kept := next.Referenced()
	var out []string
	seen := make(map[string]struct{})
	for _, cell := range g.Cells {
		if cell == "" {
			continue
		}
		if _, ok := kept[cell]; ok {
			continue
		}
		if _, dup := seen[cell]; dup {
			continue
		}
		seen[cell] = struct{}{}
		out = append(out, cell)
	}
	return out
}
