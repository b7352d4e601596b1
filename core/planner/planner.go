// Package planner computes obstacle-free, congestion-aware routes over a grid.
package planner

import (
	"fmt"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// Planner runs shortest path searches against a World. It never mutates the
// world; each search works on a read-only copy of the cell layout.
type Planner struct {
	world *grid.World
}

// New returns a planner bound to w.
func New(w *grid.World) (*Planner, error) {
	if w == nil {
		return nil, fmt.Errorf("planner: nil world")
	}
	return &Planner{world: w}, nil
}

// FindPath returns the cheapest 4-connected route from start to end, minimising
// the summed congestion weight of the entered cells and then the hop count.
// An unreachable end yields an empty path and a nil error. start == end yields
// the single element path [start].
func (p *Planner) FindPath(start, end model.Position) (model.Path, error) {
	for _, pos := range []model.Position{start, end} {
		if !p.world.InBounds(pos) {
			return nil, fmt.Errorf("%w: %v", grid.ErrOutOfBounds, pos)
		}
	}
	if start == end {
		return model.Path{start}, nil
	}
	g := newGridGraph(p.world.Layout())
	s := simple.Node(g.id(start.X, start.Y))
	t := simple.Node(g.id(end.X, end.Y))
	shortest, _ := path.AStar(s, t, g, g.heuristic)
	nodes, _ := shortest.To(t.ID())
	if len(nodes) == 0 {
		return model.Path{}, nil
	}
	out := make(model.Path, len(nodes))
	for i, n := range nodes {
		x, y := g.xy(n.ID())
		out[i] = model.Pos(x, y)
	}
	return out, nil
}

// Cost returns the summed weight of every cell entered along route.
func (p *Planner) Cost(route model.Path) int {
	if len(route) < 2 {
		return 0
	}
	l := p.world.Layout()
	total := 0
	for _, pos := range route[1:] {
		total += l.At(pos.X, pos.Y).Weight()
	}
	return total
}
