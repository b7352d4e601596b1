package grid

// Cell is the content of one grid square. Zero is an obstacle; any value in
// [MinWeight, MaxWeight] is a passable cell with that traversal cost.
type Cell int

const (
	Obstacle  Cell = 0
	MinWeight Cell = 1
	MaxWeight Cell = 10
)

// Passable reports whether the cell can be traversed.
func (c Cell) Passable() bool { return c >= MinWeight }

// Congested reports whether traversal costs more than a plain road.
func (c Cell) Congested() bool { return c > MinWeight }

// Weight returns the traversal cost, or 0 for an obstacle.
func (c Cell) Weight() int {
	if !c.Passable() {
		return 0
	}
	return int(c)
}

func clampWeight(w int) Cell {
	if w < int(MinWeight) {
		return MinWeight
	}
	if w > int(MaxWeight) {
		return MaxWeight
	}
	return Cell(w)
}

// Layout is a read-only copy of the cell matrix handed to path planning.
type Layout struct {
	width, height int
	cells         []Cell
}

// Width returns the number of columns.
func (l Layout) Width() int { return l.width }

// Height returns the number of rows.
func (l Layout) Height() int { return l.height }

// InBounds reports whether (x,y) lies inside the layout.
func (l Layout) InBounds(x, y int) bool {
	return x >= 0 && x < l.width && y >= 0 && y < l.height
}

// At returns the cell at (x,y); out of range coordinates read as obstacles.
func (l Layout) At(x, y int) Cell {
	if !l.InBounds(x, y) {
		return Obstacle
	}
	return l.cells[y*l.width+x]
}
