package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/reasoning"
)

const selectionSystem = `You are a dispatcher choosing observers for a photo task on a city grid.
Prefer observers close to the task location, then observers with a moderate speed.
Only pick ids from the candidate list and never pick busy observers.
Return exactly the requested number of ids, or every candidate when there are fewer.`

// LLMPolicy lets a Reasoner choose the observer ids. Destinations are
// assigned the same way as for TopK. Ids the reasoner invents are dropped.
type LLMPolicy struct {
	Reasoner reasoning.Reasoner
	Log      logger.Logger
}

type selectionAnswer struct {
	ObserverIDs []string `json:"observer_ids"`
}

type candidateCard struct {
	ID       string         `json:"id"`
	Position model.Position `json:"position"`
	Quadrant model.Quadrant `json:"quadrant"`
	Speed    float64        `json:"speed"`
	Busy     bool           `json:"busy"`
}

func (p LLMPolicy) Select(ctx context.Context, req Request) (Selection, error) {
	if len(req.Candidates) == 0 {
		return Selection{}, nil
	}
	log := logger.OrNop(p.Log)
	cards := make([]candidateCard, len(req.Candidates))
	byID := make(map[string]model.ObserverSnapshot, len(req.Candidates))
	for i, c := range req.Candidates {
		cards[i] = candidateCard{ID: c.ID, Position: c.Position, Quadrant: grid.Classify(c.Position, req.Target), Speed: c.Speed, Busy: c.Busy}
		byID[c.ID] = c
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		return Selection{}, err
	}
	prompt := reasoning.Prompt{
		System: selectionSystem,
		User: fmt.Sprintf("Task: %s\nTarget: %v\nUnobserved quadrants: %v\nObservers needed: %d\nGrid: %s\nCandidates: %s\nReturn a JSON object {\"observer_ids\": [string]}.",
			req.Description, req.Target, req.Observed.Missing(), req.FleetSize, gridSummary(req.World), payload),
		Schema: "observer_ids",
	}
	var out selectionAnswer
	if err := p.Reasoner.Invoke(ctx, prompt, &out); err != nil {
		return Selection{}, err
	}
	var chosen []model.ObserverSnapshot
	seen := make(map[string]struct{})
	for _, id := range out.ObserverIDs {
		c, ok := byID[id]
		if !ok || c.Busy {
			log.Warnf("reasoner picked unusable observer %q", id)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		chosen = append(chosen, c)
		if len(chosen) == req.FleetSize {
			break
		}
	}
	return withDestinations(req, chosen), nil
}

// gridSummary renders the cell matrix row by row: 0 for obstacles, otherwise
// the congestion weight.
func gridSummary(w *grid.World) string {
	if w == nil {
		return "unknown"
	}
	l := w.Layout()
	var b strings.Builder
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", int(l.At(x, y)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
