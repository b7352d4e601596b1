// Package selection chooses which observers to send next and where each of
// them should observe from.
package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
)

// ErrNoCandidates is returned when a policy cannot produce a usable
// selection although candidates were available.
var ErrNoCandidates = errors.New("no candidates selected")

// Request carries everything a policy may look at.
type Request struct {
	// World is read-only for policies.
	World       *grid.World
	Target      model.Position
	Observed    model.QuadrantSet
	FleetSize   int
	Candidates  []model.ObserverSnapshot
	Description string
}

// Selection pairs each chosen observer id with its destination.
type Selection struct {
	IDs          []string
	Destinations []model.Position
}

// Len returns the number of selected observers.
func (s Selection) Len() int { return len(s.IDs) }

// Validate checks that s is a well formed answer to req: matching lengths,
// no duplicates, only known candidates and in-bounds destinations.
func (s Selection) Validate(req Request) error {
	if len(s.IDs) != len(s.Destinations) {
		return fmt.Errorf("%w: %d ids for %d destinations", ErrNoCandidates, len(s.IDs), len(s.Destinations))
	}
	if req.FleetSize > 0 && len(s.IDs) > req.FleetSize {
		return fmt.Errorf("%w: %d selected for a fleet size of %d", ErrNoCandidates, len(s.IDs), req.FleetSize)
	}
	known := make(map[string]struct{}, len(req.Candidates))
	for _, c := range req.Candidates {
		known[c.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(s.IDs))
	for i, id := range s.IDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s is not a candidate", ErrNoCandidates, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s selected twice", ErrNoCandidates, id)
		}
		seen[id] = struct{}{}
		if req.World != nil && !req.World.InBounds(s.Destinations[i]) {
			return fmt.Errorf("%w: destination %v out of bounds", ErrNoCandidates, s.Destinations[i])
		}
	}
	return nil
}

// Policy picks a bounded, quadrant diverse set of observers. An empty
// selection is valid only when Candidates is empty.
type Policy interface {
	Select(ctx context.Context, req Request) (Selection, error)
}
