package scenarios

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/reasoning"
	"github.com/kilianp07/cityguard/core/selection"
	"github.com/kilianp07/cityguard/core/store"
	"github.com/kilianp07/cityguard/infra/logger"
	"github.com/kilianp07/cityguard/internal/eventbus"
	"github.com/kilianp07/cityguard/simulator"
)

type replayJudge struct {
	mu        sync.Mutex
	decisions []model.Decision
	calls     int
}

func (j *replayJudge) Judge(context.Context, string, model.Summary) (model.Decision, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	i := j.calls
	if i >= len(j.decisions) {
		i = len(j.decisions) - 1
	}
	j.calls++
	return j.decisions[i], nil
}

// Build wires a controller for sc on simulated observers.
func Build(sc *Scenario) (*escalation.Controller, error) {
	w, err := grid.NewEmpty(sc.Grid.Width, sc.Grid.Height)
	if err != nil {
		return nil, err
	}
	for _, p := range sc.Grid.Obstacles {
		if err := w.SetCell(p.ToModel(), grid.Obstacle); err != nil {
			return nil, err
		}
	}
	obs := make([]dispatch.Observer, len(sc.Observers))
	for i, def := range sc.Observers {
		o := simulator.NewObserver(def.ID, model.Pos(def.X, def.Y), def.Speed, def.Heading, rand.New(rand.NewSource(int64(i+1))))
		o.SetBusy(def.Busy)
		if def.Fail {
			o.FailureRate = 1
		}
		obs[i] = o
	}
	fleet, err := dispatch.NewFleet(obs...)
	if err != nil {
		return nil, err
	}
	d, err := dispatch.New(fleet, dispatch.Config{}, dispatch.WithReportStore(store.NewMemoryStore()))
	if err != nil {
		return nil, err
	}
	decisions, err := sc.decisions()
	if err != nil {
		return nil, err
	}
	return escalation.New(escalation.Deps{
		World:       w,
		Dispatcher:  d,
		Policy:      selection.NewTopK(),
		Synthesizer: reasoning.ConcatSynthesizer{},
		Judge:       &replayJudge{decisions: decisions},
		Logger:      logger.NopLogger{},
		Bus:         eventbus.New(),
	}, sc.Escalation.ToConfig())
}

func RunScenario(t *testing.T, sc *Scenario) {
	ctrl, err := Build(sc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	target := sc.Target.ToModel()
	out, err := ctrl.Run(context.Background(), model.Task{ID: "task-" + sc.Name, Description: sc.Description, Target: &target})
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	exp := sc.Expected
	if out.State.String() != exp.State {
		t.Errorf("scenario %s expected state %s, got %s", sc.Name, exp.State, out.State)
	}
	if out.Iterations != exp.Iterations {
		t.Errorf("scenario %s expected %d iterations, got %d", sc.Name, exp.Iterations, out.Iterations)
	}
	if len(out.Rounds) != exp.Rounds {
		t.Errorf("scenario %s expected %d rounds, got %d", sc.Name, exp.Rounds, len(out.Rounds))
	}
	if len(out.Excluded) != exp.Excluded {
		t.Errorf("scenario %s expected %d excluded, got %v", sc.Name, exp.Excluded, out.Excluded)
	}
	if (out.Report != nil) != exp.HasReport {
		t.Errorf("scenario %s expected report=%t, got %v", sc.Name, exp.HasReport, out.Report)
	}
}
