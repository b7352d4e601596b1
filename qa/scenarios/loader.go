package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/model"
)

type PointDef struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p PointDef) ToModel() model.Position { return model.Pos(p.X, p.Y) }

type GridDef struct {
	Width     int        `yaml:"width"`
	Height    int        `yaml:"height"`
	Obstacles []PointDef `yaml:"obstacles,omitempty"`
}

type ObserverDef struct {
	ID      string  `yaml:"id"`
	X       int     `yaml:"x"`
	Y       int     `yaml:"y"`
	Speed   float64 `yaml:"speed"`
	Heading float64 `yaml:"heading"`
	Busy    bool    `yaml:"busy,omitempty"`
	Fail    bool    `yaml:"fail,omitempty"`
}

type EscalationDef struct {
	NearbyRadius  float64 `yaml:"nearby_radius"`
	FleetSize     int     `yaml:"fleet_size"`
	MaxIterations int     `yaml:"max_iterations"`
}

func (e EscalationDef) ToConfig() escalation.Config {
	return escalation.Config{NearbyRadius: e.NearbyRadius, FleetSize: e.FleetSize, MaxIterations: e.MaxIterations}
}

type Expected struct {
	State      string `yaml:"state"`
	Iterations int    `yaml:"iterations"`
	Rounds     int    `yaml:"rounds"`
	Excluded   int    `yaml:"excluded"`
	HasReport  bool   `yaml:"has_report"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Grid        GridDef       `yaml:"grid"`
	Target      PointDef      `yaml:"target"`
	Escalation  EscalationDef `yaml:"escalation"`
	Observers   []ObserverDef `yaml:"observers"`
	// Decisions are replayed by the judge, the last one repeating.
	Decisions []string `yaml:"decisions"`
	Expected  Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if _, err := sc.decisions(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) decisions() ([]model.Decision, error) {
	if len(sc.Decisions) == 0 {
		return []model.Decision{model.DecisionContinue}, nil
	}
	out := make([]model.Decision, len(sc.Decisions))
	for i, s := range sc.Decisions {
		d, ok := model.ParseDecision(s)
		if !ok {
			return nil, fmt.Errorf("unknown decision %q", s)
		}
		out[i] = d
	}
	return out, nil
}
