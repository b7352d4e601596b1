package planner

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/cityguard/core/grid"
)

// neighbourOffsets fixes the expansion order so searches are deterministic.
var neighbourOffsets = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// gridGraph exposes a grid layout as a directed weighted gonum graph. Moving
// into a cell costs that cell's congestion weight; obstacles have no edges.
//
// Edge weights are cost*hopScale+1 so that the search minimises total cost
// first and hop count second. hopScale exceeds any possible hop count, which
// keeps the two terms from interfering.
type gridGraph struct {
	layout   grid.Layout
	hopScale float64
}

func newGridGraph(l grid.Layout) gridGraph {
	return gridGraph{layout: l, hopScale: float64(l.Width()*l.Height() + 1)}
}

func (g gridGraph) id(x, y int) int64 { return int64(y*g.layout.Width() + x) }

func (g gridGraph) xy(id int64) (int, int) {
	w := int64(g.layout.Width())
	return int(id % w), int(id / w)
}

func (g gridGraph) valid(id int64) bool {
	return id >= 0 && id < int64(g.layout.Width()*g.layout.Height())
}

// Node implements graph.Graph.
func (g gridGraph) Node(id int64) graph.Node {
	if !g.valid(id) {
		return nil
	}
	return simple.Node(id)
}

// Nodes implements graph.Graph.
func (g gridGraph) Nodes() graph.Nodes {
	n := g.layout.Width() * g.layout.Height()
	nodes := make([]graph.Node, n)
	for i := range nodes {
		nodes[i] = simple.Node(int64(i))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g gridGraph) neighbours(id int64) []graph.Node {
	if !g.valid(id) {
		return nil
	}
	x, y := g.xy(id)
	if !g.layout.At(x, y).Passable() {
		return nil
	}
	var out []graph.Node
	for _, off := range neighbourOffsets {
		nx, ny := x+off[0], y+off[1]
		if g.layout.At(nx, ny).Passable() {
			out = append(out, simple.Node(g.id(nx, ny)))
		}
	}
	return out
}

// From implements graph.Graph.
func (g gridGraph) From(id int64) graph.Nodes {
	n := g.neighbours(id)
	if len(n) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(n)
}

// To implements graph.Directed. Adjacency is symmetric, only weights differ.
func (g gridGraph) To(id int64) graph.Nodes { return g.From(id) }

func (g gridGraph) hasEdge(uid, vid int64) bool {
	if !g.valid(uid) || !g.valid(vid) {
		return false
	}
	ux, uy := g.xy(uid)
	vx, vy := g.xy(vid)
	dx, dy := ux-vx, uy-vy
	if dx*dx+dy*dy != 1 {
		return false
	}
	return g.layout.At(ux, uy).Passable() && g.layout.At(vx, vy).Passable()
}

// HasEdgeBetween implements graph.Graph.
func (g gridGraph) HasEdgeBetween(xid, yid int64) bool { return g.hasEdge(xid, yid) }

// HasEdgeFromTo implements graph.Directed.
func (g gridGraph) HasEdgeFromTo(uid, vid int64) bool { return g.hasEdge(uid, vid) }

// Edge implements graph.Graph.
func (g gridGraph) Edge(uid, vid int64) graph.Edge {
	return g.WeightedEdge(uid, vid)
}

// WeightedEdge implements graph.Weighted.
func (g gridGraph) WeightedEdge(uid, vid int64) graph.WeightedEdge {
	if !g.hasEdge(uid, vid) {
		return nil
	}
	return simple.WeightedEdge{F: simple.Node(uid), T: simple.Node(vid), W: g.edgeWeight(vid)}
}

// Weight implements graph.Weighted.
func (g gridGraph) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if !g.hasEdge(xid, yid) {
		return math.Inf(1), false
	}
	return g.edgeWeight(yid), true
}

func (g gridGraph) edgeWeight(vid int64) float64 {
	x, y := g.xy(vid)
	return float64(g.layout.At(x, y).Weight())*g.hopScale + 1
}

// heuristic is the Manhattan distance times the cheapest possible step, which
// keeps A* admissible and consistent under the composite weights.
func (g gridGraph) heuristic(u, v graph.Node) float64 {
	ux, uy := g.xy(u.ID())
	vx, vy := g.xy(v.ID())
	dx, dy := ux-vx, uy-vy
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return float64(dx+dy) * (g.hopScale + 1)
}
