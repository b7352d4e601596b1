// Package simulator provides in-process observers for offline runs, tests
// and the MQTT observer agent.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/reasoning"
)

// ErrObservationFailed is returned for a task the observer randomly fails.
var ErrObservationFailed = errors.New("observation failed")

// ErrBusy is returned when a task arrives while another one runs.
var ErrBusy = errors.New("observer busy")

// Observer is a simulated observer. It moves to the ordered destination,
// looks towards the target and reports what it saw.
type Observer struct {
	id string

	mu      sync.Mutex
	pos     model.Position
	speed   float64
	heading float64
	busy    bool
	rng     *rand.Rand

	// FailureRate is the probability for a task to fail.
	FailureRate float64
	// Latency delays every task, honouring cancellation.
	Latency time.Duration
}

// NewObserver returns an idle observer at pos.
func NewObserver(id string, pos model.Position, speed, heading float64, rng *rand.Rand) *Observer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Observer{id: id, pos: pos, speed: speed, heading: heading, rng: rng}
}

func (o *Observer) ID() string { return o.id }

// Snapshot returns the observer's current state.
func (o *Observer) Snapshot(ctx context.Context) (model.ObserverSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.ObserverSnapshot{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return model.ObserverSnapshot{
		ID:       o.id,
		Position: o.pos,
		Busy:     o.busy,
		Speed:    o.speed,
		Heading:  o.heading,
	}, nil
}

// SetBusy marks the observer as busy with outside work.
func (o *Observer) SetBusy(busy bool) {
	o.mu.Lock()
	o.busy = busy
	o.mu.Unlock()
}

// ExecuteTask moves to the order's destination when one is given, turns
// towards the target and produces a report. The observer is busy while the
// task runs.
func (o *Observer) ExecuteTask(ctx context.Context, order model.TaskOrder) (model.Report, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return model.Report{}, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()
	defer o.SetBusy(false)

	if o.Latency > 0 {
		t := time.NewTimer(o.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return model.Report{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailureRate > 0 && o.rng.Float64() < o.FailureRate {
		return model.Report{}, fmt.Errorf("%w: %s", ErrObservationFailed, o.id)
	}
	if order.Destination != nil {
		o.pos = *order.Destination
	}
	if o.pos != order.Target {
		o.heading = Bearing(o.pos, order.Target)
	}
	rep := model.Report{
		TaskID:     order.TaskID,
		ObserverID: o.id,
		Heading:    o.heading,
		Position:   o.pos,
		ObservedAt: time.Now().UTC(),
		Result: fmt.Sprintf("looking %s at %v from %v: %s",
			reasoning.Compass(o.heading), order.Target, o.pos, order.Description),
		Evidence: "frame-" + uuid.NewString(),
	}
	if order.Verbose {
		rep.Result += fmt.Sprintf(" (route of %d hops, speed %.1f)", order.Route.Hops(), o.speed)
	}
	return rep, nil
}

// Bearing returns the compass heading in degrees from p towards q, with 0
// pointing to decreasing y (north on the grid) and 90 to increasing x.
func Bearing(p, q model.Position) float64 {
	dx := float64(q.X - p.X)
	dy := float64(p.Y - q.Y)
	deg := math.Atan2(dx, dy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
