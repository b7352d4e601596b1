package selection

import (
	"context"

	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// Default score weights: distance dominates, slower observers break near ties.
const (
	DefaultDistanceWeight = 0.7
	DefaultSpeedWeight    = 0.3
)

// TopK ranks candidates by a distance weighted score and keeps the best
// FleetSize of them. Candidates sitting in a quadrant that has not been
// observed yet are ranked ahead of the others.
type TopK struct {
	DistanceWeight float64 `json:"distance_weight"`
	SpeedWeight    float64 `json:"speed_weight"`
}

// NewTopK returns a TopK policy with the default weights.
func NewTopK() TopK {
	return TopK{DistanceWeight: DefaultDistanceWeight, SpeedWeight: DefaultSpeedWeight}
}

type scored struct {
	snap     model.ObserverSnapshot
	score    float64
	fresh    bool
	quadrant model.Quadrant
}

// Score is -dw*d² - sw*speed; higher is better.
func (p TopK) Score(c model.ObserverSnapshot, target model.Position) float64 {
	d2 := float64(c.Position.SquaredDistanceTo(target))
	return -p.DistanceWeight*d2 - p.SpeedWeight*c.Speed
}

// better orders unobserved quadrants first, then by score descending, then by
// id ascending.
func better(a, b scored) bool {
	if a.fresh != b.fresh {
		return a.fresh
	}
	if a.score != b.score {
		return a.score > b.score
	}
	return a.snap.ID < b.snap.ID
}

// Rank returns the best k candidates, best first.
func (p TopK) Rank(req Request, k int) []model.ObserverSnapshot {
	q := NewBoundedQueue(k, better)
	for _, c := range req.Candidates {
		if c.Busy {
			continue
		}
		quad := grid.Classify(c.Position, req.Target)
		q.Push(scored{snap: c, score: p.Score(c, req.Target), fresh: !req.Observed.Has(quad), quadrant: quad})
	}
	ranked := q.Drain()
	out := make([]model.ObserverSnapshot, len(ranked))
	for i, s := range ranked {
		out[i] = s.snap
	}
	return out
}

func (p TopK) Select(_ context.Context, req Request) (Selection, error) {
	chosen := p.Rank(req, req.FleetSize)
	return withDestinations(req, chosen), nil
}

func withDestinations(req Request, chosen []model.ObserverSnapshot) Selection {
	sel := Selection{IDs: make([]string, len(chosen))}
	own := make([]model.Quadrant, len(chosen))
	for i, c := range chosen {
		sel.IDs[i] = c.ID
		own[i] = grid.Classify(c.Position, req.Target)
	}
	if req.World != nil {
		sel.Destinations = AssignDestinations(req.World, req.Target, req.Observed, own)
	} else {
		sel.Destinations = make([]model.Position, len(chosen))
		for i := range sel.Destinations {
			sel.Destinations[i] = req.Target
		}
	}
	return sel
}
