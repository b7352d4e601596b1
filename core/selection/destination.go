package selection

import (
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// AssignDestinations picks one observation cell per selected observer. The
// quadrants missing from observed are handed out round robin; once every
// quadrant is covered an observer keeps its own quadrant. own[i] is the
// current quadrant of observer i.
func AssignDestinations(w *grid.World, target model.Position, observed model.QuadrantSet, own []model.Quadrant) []model.Position {
	missing := observed.Missing()
	used := make(map[model.Position]struct{}, len(own))
	out := make([]model.Position, len(own))
	for i, q := range own {
		if len(missing) > 0 {
			q = missing[i%len(missing)]
		}
		out[i] = NearestInQuadrant(w, target, q, used)
		used[out[i]] = struct{}{}
	}
	return out
}

// NearestInQuadrant returns the passable cell closest to target that
// classifies into q, preferring cells not in avoid. Rings around the target
// are searched outwards; within a ring the smallest Euclidean distance wins,
// then the smallest y, then the smallest x. The target itself is returned
// when no cell qualifies.
func NearestInQuadrant(w *grid.World, target model.Position, q model.Quadrant, avoid map[model.Position]struct{}) model.Position {
	fallback, found := model.Position{}, false
	maxR := w.Width()
	if w.Height() > maxR {
		maxR = w.Height()
	}
	for r := 1; r <= maxR; r++ {
		best, ok := model.Position{}, false
		for y := target.Y - r; y <= target.Y+r; y++ {
			for x := target.X - r; x <= target.X+r; x++ {
				if abs(x-target.X) != r && abs(y-target.Y) != r {
					continue
				}
				p := model.Pos(x, y)
				if !w.Passable(p) || grid.Classify(p, target) != q {
					continue
				}
				if !found {
					fallback, found = p, true
				}
				if _, taken := avoid[p]; taken {
					continue
				}
				if !ok || p.SquaredDistanceTo(target) < best.SquaredDistanceTo(target) {
					best, ok = p, true
				}
			}
		}
		if ok {
			return best
		}
	}
	if found {
		return fallback
	}
	return target
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
