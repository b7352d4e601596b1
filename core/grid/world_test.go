package grid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cityguard/core/model"
)

func TestNewRejectsInvalidSize(t *testing.T) {
	_, err := New(0, 10, DefaultOptions())
	require.Error(t, err)
}

func TestNewAllObstaclesStayObstacles(t *testing.T) {
	w, err := New(20, 20, Options{ObstacleDensity: 1, CongestionZones: 5, ZoneMinRadius: 1, ZoneMaxRadius: 3, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)
	l := w.Layout()
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			if l.At(x, y).Passable() {
				t.Fatalf("congestion turned obstacle (%d,%d) passable", x, y)
			}
		}
	}
}

func TestNewCongestionWeights(t *testing.T) {
	w, err := New(30, 30, Options{CongestionZones: 5, ZoneMinRadius: 1, ZoneMaxRadius: 3, Rand: rand.New(rand.NewSource(7))})
	require.NoError(t, err)
	l := w.Layout()
	maxSeen := 0
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			c := l.At(x, y)
			require.True(t, c.Passable())
			assert.GreaterOrEqual(t, c.Weight(), 1)
			assert.LessOrEqual(t, c.Weight(), 10)
			if c.Weight() > maxSeen {
				maxSeen = c.Weight()
			}
		}
	}
	assert.Equal(t, 10, maxSeen, "zone centres carry the maximum weight")
}

func TestNewDeterministicWithSeed(t *testing.T) {
	a, err := New(15, 15, Options{ObstacleDensity: 0.2, CongestionZones: 2, ZoneMinRadius: 1, ZoneMaxRadius: 3, Rand: rand.New(rand.NewSource(42))})
	require.NoError(t, err)
	b, err := New(15, 15, Options{ObstacleDensity: 0.2, CongestionZones: 2, ZoneMinRadius: 1, ZoneMaxRadius: 3, Rand: rand.New(rand.NewSource(42))})
	require.NoError(t, err)
	assert.Equal(t, a.Layout(), b.Layout())
}

func TestSetTargetOutOfBounds(t *testing.T) {
	w, err := NewEmpty(10, 10)
	require.NoError(t, err)
	for _, p := range []model.Position{{X: -1, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 3, Y: -2}} {
		err := w.SetTarget(p)
		if !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetTarget(%v) = %v, want ErrOutOfBounds", p, err)
		}
	}
	_, ok := w.Target()
	assert.False(t, ok)
	require.NoError(t, w.SetTarget(model.Pos(9, 9)))
}

func TestRemoveObserversIdempotent(t *testing.T) {
	w, err := NewEmpty(5, 5)
	require.NoError(t, err)
	require.NoError(t, w.PlaceObserver("a", model.Pos(1, 1)))
	w.RemoveObservers("a", "missing")
	w.RemoveObservers("a")
	assert.Empty(t, w.Observers())
}

func TestNearbyObserversStrictRadius(t *testing.T) {
	w, err := NewEmpty(10, 10)
	require.NoError(t, err)
	_, err = w.NearbyObservers(3)
	require.ErrorIs(t, err, ErrNoTarget)

	require.NoError(t, w.SetTarget(model.Pos(5, 5)))
	require.NoError(t, w.PlaceObserver("same", model.Pos(5, 5)))
	require.NoError(t, w.PlaceObserver("edge", model.Pos(5, 8)))
	require.NoError(t, w.PlaceObserver("inside", model.Pos(6, 6)))
	require.NoError(t, w.PlaceObserver("far", model.Pos(0, 0)))

	near, err := w.NearbyObservers(3)
	require.NoError(t, err)
	ids := make([]string, 0, len(near))
	for _, p := range near {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"inside", "same"}, ids)
}

func TestSingleObserverAtTarget(t *testing.T) {
	w, err := NewEmpty(10, 10)
	require.NoError(t, err)
	target := model.Pos(5, 5)
	require.NoError(t, w.SetTarget(target))
	require.NoError(t, w.PlaceObserver("o1", target))

	near, err := w.NearbyObservers(1)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "o1", near[0].ID)
	// (5,5) against itself fails the first three predicates and lands in 3.
	assert.Equal(t, model.Quadrant(3), Classify(near[0].Position, target))
}

func TestSetCellClampsWeight(t *testing.T) {
	w, err := NewEmpty(3, 3)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(model.Pos(1, 1), 42))
	c, err := w.Cell(model.Pos(1, 1))
	require.NoError(t, err)
	assert.Equal(t, MaxWeight, c)
	require.NoError(t, w.SetCell(model.Pos(0, 0), Obstacle))
	assert.False(t, w.Passable(model.Pos(0, 0)))
	assert.False(t, w.Passable(model.Pos(5, 5)))
}

func TestCloneCopiesCellsOnly(t *testing.T) {
	w, err := NewEmpty(4, 4)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(model.Pos(1, 1), Obstacle))
	require.NoError(t, w.SetTarget(model.Pos(2, 2)))
	require.NoError(t, w.PlaceObserver("a", model.Pos(0, 0)))

	c := w.Clone()
	assert.False(t, c.Passable(model.Pos(1, 1)))
	_, ok := c.Target()
	assert.False(t, ok)
	assert.Empty(t, c.Observers())

	require.NoError(t, c.SetCell(model.Pos(3, 3), Obstacle))
	assert.True(t, w.Passable(model.Pos(3, 3)))
}
