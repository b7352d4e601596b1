package grid

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/cityguard/core/model"
)

// Options controls the stochastic map generation.
type Options struct {
	// ObstacleDensity is the probability for each cell to become an obstacle.
	ObstacleDensity float64
	// CongestionZones is the number of circular congestion zones overlaid.
	CongestionZones int
	ZoneMinRadius   int
	ZoneMaxRadius   int
	// Rand drives generation. A time seeded source is used when nil.
	Rand *rand.Rand
}

// DefaultOptions mirrors the reference city map: 20% obstacles and five
// congestion zones with a radius between 1 and 3.
func DefaultOptions() Options {
	return Options{ObstacleDensity: 0.2, CongestionZones: 5, ZoneMinRadius: 1, ZoneMaxRadius: 3}
}

// Placement associates an observer id with its grid position.
type Placement struct {
	ID       string
	Position model.Position
}

// World is the discrete map owned by one query. Positions placed here are the
// single source of truth for the controller.
type World struct {
	width, height int
	cells         []Cell

	mu        sync.RWMutex
	target    *model.Position
	observers map[string]model.Position
}

// New builds a fully passable width x height grid, then marks a fraction of
// cells as obstacles and overlays the configured congestion zones.
func New(width, height int, opts Options) (*World, error) {
	w, err := NewEmpty(width, height)
	if err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	w.addObstacles(rng, opts.ObstacleDensity)
	w.addCongestion(rng, opts.CongestionZones, opts.ZoneMinRadius, opts.ZoneMaxRadius)
	return w, nil
}

// NewEmpty builds a fully passable grid with unit weights.
func NewEmpty(width, height int) (*World, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: invalid size %dx%d", width, height)
	}
	cells := make([]Cell, width*height)
	for i := range cells {
		cells[i] = MinWeight
	}
	return &World{
		width:     width,
		height:    height,
		cells:     cells,
		observers: make(map[string]model.Position),
	}, nil
}

func (w *World) addObstacles(rng *rand.Rand, density float64) {
	if density <= 0 {
		return
	}
	for i := range w.cells {
		if rng.Float64() < density {
			w.cells[i] = Obstacle
		}
	}
}

// addCongestion raises the weight of passable cells inside each zone. The
// weight decays linearly from 10 at the centre to 1 at the radius.
func (w *World) addCongestion(rng *rand.Rand, zones, minR, maxR int) {
	if zones <= 0 {
		return
	}
	if minR < 1 {
		minR = 1
	}
	if maxR < minR {
		maxR = minR
	}
	for z := 0; z < zones; z++ {
		cx := zoneCentre(rng, w.width)
		cy := zoneCentre(rng, w.height)
		r := minR + rng.Intn(maxR-minR+1)
		for y := cy - r; y <= cy+r; y++ {
			for x := cx - r; x <= cx+r; x++ {
				if x < 0 || x >= w.width || y < 0 || y >= w.height {
					continue
				}
				dist := math.Hypot(float64(x-cx), float64(y-cy))
				if dist > float64(r) {
					continue
				}
				idx := y*w.width + x
				if !w.cells[idx].Passable() {
					continue
				}
				weight := clampWeight(int(float64(MaxWeight) * (1 - dist/float64(r))))
				if weight > w.cells[idx] {
					w.cells[idx] = weight
				}
			}
		}
	}
}

// zoneCentre keeps centres five cells away from the border when the map is
// large enough to allow it.
func zoneCentre(rng *rand.Rand, size int) int {
	const margin = 5
	if size > 2*margin {
		return margin + rng.Intn(size-2*margin+1)
	}
	return rng.Intn(size)
}

// Width returns the number of columns.
func (w *World) Width() int { return w.width }

// Height returns the number of rows.
func (w *World) Height() int { return w.height }

// InBounds reports whether p lies inside the grid.
func (w *World) InBounds(p model.Position) bool {
	return p.X >= 0 && p.X < w.width && p.Y >= 0 && p.Y < w.height
}

func (w *World) checkBounds(p model.Position) error {
	if !w.InBounds(p) {
		return fmt.Errorf("%w: %v not in %dx%d", ErrOutOfBounds, p, w.width, w.height)
	}
	return nil
}

// Cell returns the cell at p.
func (w *World) Cell(p model.Position) (Cell, error) {
	if err := w.checkBounds(p); err != nil {
		return Obstacle, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cells[p.Y*w.width+p.X], nil
}

// SetCell overrides the cell at p. Weights are clamped to [1,10].
func (w *World) SetCell(p model.Position, c Cell) error {
	if err := w.checkBounds(p); err != nil {
		return err
	}
	if c != Obstacle {
		c = clampWeight(int(c))
	}
	w.mu.Lock()
	w.cells[p.Y*w.width+p.X] = c
	w.mu.Unlock()
	return nil
}

// Passable reports whether p is inside the grid and not an obstacle.
func (w *World) Passable(p model.Position) bool {
	c, err := w.Cell(p)
	return err == nil && c.Passable()
}

// Layout returns a read-only copy of the cell matrix.
func (w *World) Layout() Layout {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cells := make([]Cell, len(w.cells))
	copy(cells, w.cells)
	return Layout{width: w.width, height: w.height, cells: cells}
}

// Clone returns a world with the same cells and no target or observers.
func (w *World) Clone() *World {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cells := make([]Cell, len(w.cells))
	copy(cells, w.cells)
	return &World{
		width:     w.width,
		height:    w.height,
		cells:     cells,
		observers: make(map[string]model.Position),
	}
}

// SetTarget sets the query's target point.
func (w *World) SetTarget(p model.Position) error {
	if err := w.checkBounds(p); err != nil {
		return err
	}
	w.mu.Lock()
	w.target = &p
	w.mu.Unlock()
	return nil
}

// Target returns the target point and whether one has been set.
func (w *World) Target() (model.Position, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.target == nil {
		return model.Position{}, false
	}
	return *w.target, true
}

// PlaceObserver records or moves the observer with the given id.
func (w *World) PlaceObserver(id string, p model.Position) error {
	if err := w.checkBounds(p); err != nil {
		return err
	}
	w.mu.Lock()
	w.observers[id] = p
	w.mu.Unlock()
	return nil
}

// RemoveObservers drops the given ids from the live set. Unknown ids are ignored.
func (w *World) RemoveObservers(ids ...string) {
	w.mu.Lock()
	for _, id := range ids {
		delete(w.observers, id)
	}
	w.mu.Unlock()
}

// ObserverPosition returns the position of a placed observer.
func (w *World) ObserverPosition(id string) (model.Position, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.observers[id]
	return p, ok
}

// Observers returns every placed observer ordered by id.
func (w *World) Observers() []Placement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sortedPlacements(w.observers, func(model.Position) bool { return true })
}

// NearbyObservers returns the placed observers whose Euclidean distance to the
// target is strictly less than radius, ordered by id.
func (w *World) NearbyObservers(radius float64) ([]Placement, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.target == nil {
		return nil, ErrNoTarget
	}
	t := *w.target
	return sortedPlacements(w.observers, func(p model.Position) bool {
		return p.DistanceTo(t) < radius
	}), nil
}

func sortedPlacements(m map[string]model.Position, keep func(model.Position) bool) []Placement {
	out := make([]Placement, 0, len(m))
	for id, p := range m {
		if keep(p) {
			out = append(out, Placement{ID: id, Position: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
