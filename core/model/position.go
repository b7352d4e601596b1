package model

import (
	"fmt"
	"math"
	"sort"
)

// Position is a discrete grid coordinate.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position { return Position{X: x, Y: y} }

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// DistanceTo returns the Euclidean distance between p and q.
func (p Position) DistanceTo(q Position) float64 {
	return math.Sqrt(float64(p.SquaredDistanceTo(q)))
}

// SquaredDistanceTo returns the squared Euclidean distance between p and q.
func (p Position) SquaredDistanceTo(q Position) int {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Adjacent reports whether q is one horizontal or vertical step away from p.
func (p Position) Adjacent(q Position) bool {
	dx := p.X - q.X
	dy := p.Y - q.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}

// Path is an ordered route over the grid. An empty path means unreachable.
type Path []Position

// Reachable is false for the empty path.
func (p Path) Reachable() bool { return len(p) > 0 }

// Hops returns the number of moves in the path.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Quadrant is a directional sector around the target point.
//
//	1 | 2
//	--+--
//	0 | 3
type Quadrant int

// NumQuadrants is the number of directional sectors.
const NumQuadrants = 4

// Valid reports whether q is one of 0..3.
func (q Quadrant) Valid() bool { return q >= 0 && q < NumQuadrants }

// QuadrantSet is a monotonically growing set of observed quadrants.
type QuadrantSet map[Quadrant]struct{}

// NewQuadrantSet returns a set holding qs.
func NewQuadrantSet(qs ...Quadrant) QuadrantSet {
	s := make(QuadrantSet, len(qs))
	for _, q := range qs {
		s.Add(q)
	}
	return s
}

// Add inserts q.
func (s QuadrantSet) Add(q Quadrant) { s[q] = struct{}{} }

// Has reports whether q is in the set.
func (s QuadrantSet) Has(q Quadrant) bool {
	_, ok := s[q]
	return ok
}

// Union adds every quadrant of o to s.
func (s QuadrantSet) Union(o QuadrantSet) {
	for q := range o {
		s.Add(q)
	}
}

// Sorted returns the members in ascending order.
func (s QuadrantSet) Sorted() []Quadrant {
	out := make([]Quadrant, 0, len(s))
	for q := range s {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Missing returns the quadrants not yet in the set, ascending.
func (s QuadrantSet) Missing() []Quadrant {
	var out []Quadrant
	for q := Quadrant(0); q < NumQuadrants; q++ {
		if !s.Has(q) {
			out = append(out, q)
		}
	}
	return out
}

// Clone returns an independent copy.
func (s QuadrantSet) Clone() QuadrantSet {
	c := make(QuadrantSet, len(s))
	c.Union(s)
	return c
}
