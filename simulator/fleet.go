package simulator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// FleetConfig holds parameters for bulk fleet generation.
type FleetConfig struct {
	Size        int
	FailureRate float64
	Latency     time.Duration
	// Rand drives generation. A time seeded source is used when nil.
	Rand *rand.Rand
}

// GenerateFleet creates Size observers with IDs obs0001..obsNNNN on random
// passable cells of w, with a speed in [30,60) and a heading in [0,360).
// Templates override generated values per id and may add observers beyond
// Size.
func GenerateFleet(w *grid.World, cfg FleetConfig, tmpl map[string]ObserverTemplate) ([]*Observer, error) {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	layout := w.Layout()
	var free []model.Position
	for y := 0; y < layout.Height(); y++ {
		for x := 0; x < layout.Width(); x++ {
			if layout.At(x, y).Passable() {
				free = append(free, model.Pos(x, y))
			}
		}
	}
	if len(free) == 0 && cfg.Size > 0 {
		return nil, fmt.Errorf("simulator: no passable cell to place observers on")
	}

	seen := make(map[string]struct{})
	var out []*Observer
	add := func(id string, pos model.Position, speed, heading float64) {
		o := NewObserver(id, pos, speed, heading, rand.New(rand.NewSource(rng.Int63())))
		o.FailureRate = cfg.FailureRate
		o.Latency = cfg.Latency
		out = append(out, o)
		seen[id] = struct{}{}
	}
	for i := 0; i < cfg.Size; i++ {
		id := fmt.Sprintf("obs%04d", i+1)
		pos := free[rng.Intn(len(free))]
		speed := 30 + rng.Float64()*30
		heading := rng.Float64() * 360
		if t, ok := tmpl[id]; ok {
			pos, speed, heading = t.apply(pos, speed, heading)
		}
		add(id, pos, speed, heading)
	}
	for _, id := range sortedTemplateIDs(tmpl) {
		if _, ok := seen[id]; ok {
			continue
		}
		t := tmpl[id]
		pos, speed, heading := t.apply(free[rng.Intn(len(free))], 30+rng.Float64()*30, rng.Float64()*360)
		add(id, pos, speed, heading)
	}
	for _, o := range out {
		if !w.InBounds(o.pos) {
			return nil, fmt.Errorf("simulator: observer %s at %v: %w", o.id, o.pos, grid.ErrOutOfBounds)
		}
	}
	return out, nil
}
