// Package escalation drives one query from discovery to a decision: it judges
// the observers already near the target, then recruits fresh observers from
// unexplored directions until the judge is satisfied or the budget is spent.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/planner"
	"github.com/kilianp07/cityguard/core/reasoning"
	"github.com/kilianp07/cityguard/core/selection"
	"github.com/kilianp07/cityguard/core/store"
	"github.com/kilianp07/cityguard/internal/eventbus"
)

var (
	// ErrNoCandidates ends a query whose selection policy failed.
	ErrNoCandidates = selection.ErrNoCandidates
	// ErrJudgment ends a query whose judge failed.
	ErrJudgment = errors.New("judgment failed")
	// ErrSynthesis ends a query whose report synthesis failed.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrNoTarget is returned for tasks without a grid target or coordinates.
	ErrNoTarget = errors.New("task has no target")
	// ErrTaskInProgress is returned when a task id is submitted while a query
	// with the same id is still running. Reports are keyed by task id.
	ErrTaskInProgress = errors.New("task already in progress")
)

// Deps are the collaborators of a Controller. Logger and Bus are optional.
type Deps struct {
	World       *grid.World
	Planner     *planner.Planner
	Dispatcher  *dispatch.Dispatcher
	Policy      selection.Policy
	Synthesizer reasoning.Synthesizer
	Judge       reasoning.Judge
	Logger      logger.Logger
	Bus         eventbus.EventBus
}

// Controller runs the escalation state machine for queries on one World.
// Transitions run strictly one after the other; only dispatch rounds fan out.
type Controller struct {
	world      *grid.World
	planner    *planner.Planner
	dispatcher *dispatch.Dispatcher
	reports    store.ReportStore
	policy     selection.Policy
	synth      reasoning.Synthesizer
	judge      reasoning.Judge
	cfg        Config
	log        logger.Logger
	bus        eventbus.EventBus
}

// New validates deps and cfg. The dispatcher must append reports to a store.
func New(d Deps, cfg Config) (*Controller, error) {
	switch {
	case d.World == nil:
		return nil, fmt.Errorf("escalation: world is required")
	case d.Dispatcher == nil:
		return nil, fmt.Errorf("escalation: dispatcher is required")
	case d.Dispatcher.Store() == nil:
		return nil, fmt.Errorf("escalation: dispatcher has no report store")
	case d.Policy == nil || d.Synthesizer == nil || d.Judge == nil:
		return nil, fmt.Errorf("escalation: policy, synthesizer and judge are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	p := d.Planner
	if p == nil {
		var err error
		if p, err = planner.New(d.World); err != nil {
			return nil, err
		}
	}
	return &Controller{
		world:      d.World,
		planner:    p,
		dispatcher: d.Dispatcher,
		reports:    d.Dispatcher.Store(),
		policy:     d.Policy,
		synth:      d.Synthesizer,
		judge:      d.Judge,
		cfg:        cfg,
		log:        logger.OrNop(d.Logger),
		bus:        d.Bus,
	}, nil
}

// Run executes a whole query: fleet snapshot broadcast, then transitions
// until a terminal state. A canceled ctx ends the query with ctx.Err().
func (c *Controller) Run(ctx context.Context, task model.Task) (Outcome, error) {
	start := time.Now()
	st := NewEscalationState()
	out, err := c.run(ctx, task, st)
	ev := events.OutcomeEvent{
		TaskID:     task.ID,
		State:      st.State.String(),
		Iterations: st.Iteration,
		Exhausted:  out.Exhausted,
		Err:        err,
		Duration:   time.Since(start),
	}
	c.publish(ev)
	if err != nil {
		c.log.Errorf("task %s failed in %s: %v", task.ID, st.State, err)
	} else {
		c.log.Infof("task %s finished in %s after %d iterations", task.ID, st.State, st.Iteration)
	}
	return out, err
}

func (c *Controller) run(ctx context.Context, task model.Task, st *EscalationState) (Outcome, error) {
	target, err := c.resolveTarget(task)
	if err != nil {
		return outcomeOf(task.ID, st), err
	}
	if err := c.world.SetTarget(target); err != nil {
		return outcomeOf(task.ID, st), err
	}
	if err := c.Populate(ctx, st); err != nil {
		return outcomeOf(task.ID, st), err
	}
	for !st.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return outcomeOf(task.ID, st), err
		}
		if err := c.Step(ctx, task, st); err != nil {
			return outcomeOf(task.ID, st), err
		}
	}
	return outcomeOf(task.ID, st), nil
}

func (c *Controller) resolveTarget(task model.Task) (model.Position, error) {
	switch {
	case task.Target != nil:
		return *task.Target, nil
	case task.Coordinates != nil:
		return grid.LatLonToGrid(*task.Coordinates, c.world.Width(), c.world.Height()), nil
	}
	return model.Position{}, fmt.Errorf("%w: %s", ErrNoTarget, task.ID)
}

// Populate broadcasts the snapshot capability to the whole fleet and places
// every idle observer on the grid. Failed snapshots and busy or out of
// bounds observers are left out.
func (c *Controller) Populate(ctx context.Context, st *EscalationState) error {
	res := c.dispatcher.Snapshots(ctx, nil)
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, snap := range res.Values() {
		if snap.Busy {
			continue
		}
		if snap.Coordinates != nil {
			snap.Position = grid.LatLonToGrid(*snap.Coordinates, c.world.Width(), c.world.Height())
		}
		if err := c.world.PlaceObserver(snap.ID, snap.Position); err != nil {
			c.log.Warnf("observer %s not placed: %v", snap.ID, err)
			continue
		}
		st.Cards[snap.ID] = snap
	}
	c.log.Infof("placed %d of %d observers", len(st.Cards), len(res))
	return nil
}

// Step performs the transition out of st.State.
func (c *Controller) Step(ctx context.Context, task model.Task, st *EscalationState) error {
	from := st.State
	var err error
	switch st.State {
	case StateDiscover:
		err = c.discover(st)
	case StatePassiveJudge:
		err = c.passiveJudge(ctx, task, st)
	case StateActiveDispatch:
		err = c.activeDispatch(ctx, task, st)
	case StateActiveJudge:
		err = c.activeJudge(ctx, task, st)
	default:
		return fmt.Errorf("escalation: no transition out of %s", st.State)
	}
	if err != nil {
		return err
	}
	c.log.Infof("task %s: %s -> %s", task.ID, from, st.State)
	return nil
}

func (c *Controller) discover(st *EscalationState) error {
	nearby, err := c.world.NearbyObservers(c.cfg.NearbyRadius)
	if err != nil {
		return err
	}
	target, _ := c.world.Target()
	st.Nearby = st.Nearby[:0]
	for _, p := range nearby {
		st.Nearby = append(st.Nearby, p.ID)
		st.Observed.Add(grid.Classify(p.Position, target))
	}
	if len(st.Nearby) == 0 {
		st.State = StateActiveDispatch
		return nil
	}
	st.State = StatePassiveJudge
	return nil
}

func (c *Controller) passiveJudge(ctx context.Context, task model.Task, st *EscalationState) error {
	target, _ := c.world.Target()
	order := c.order(task, target)
	fresh, err := c.collect(ctx, task.ID, func() {
		c.dispatcher.ExecuteTask(ctx, st.Nearby, order)
	})
	if err != nil {
		return err
	}
	decision, err := c.evaluate(ctx, task, st, fresh)
	if err != nil {
		return err
	}
	c.publishRound(task.ID, st, StatePassiveJudge, st.Nearby, len(fresh), decision)
	if decision == model.DecisionStop {
		st.State = StateDone
		return nil
	}
	st.Exclude(st.Nearby...)
	c.world.RemoveObservers(st.Nearby...)
	st.State = StateActiveDispatch
	return nil
}

func (c *Controller) activeDispatch(ctx context.Context, task model.Task, st *EscalationState) error {
	target, _ := c.world.Target()
	candidates := c.candidates(st)
	if len(candidates) == 0 {
		c.log.Infof("task %s: no observers left to recruit", task.ID)
		st.State = StateBudgetExhausted
		return nil
	}
	req := selection.Request{
		World:       c.world,
		Target:      target,
		Observed:    st.Observed.Clone(),
		FleetSize:   c.cfg.FleetSize,
		Candidates:  candidates,
		Description: task.Description,
	}
	sel, err := c.policy.Select(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNoCandidates) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNoCandidates, err)
	}
	if sel.Len() == 0 {
		return fmt.Errorf("%w: policy returned nothing for %d candidates", ErrNoCandidates, len(candidates))
	}
	if err := sel.Validate(req); err != nil {
		return err
	}

	orders := make(map[string]model.TaskOrder, sel.Len())
	for i, id := range sel.IDs {
		dest := sel.Destinations[i]
		from, _ := c.world.ObserverPosition(id)
		route, err := c.planner.FindPath(from, dest)
		switch {
		case err != nil:
			c.log.Warnf("task %s: route for %s: %v", task.ID, id, err)
		case !route.Reachable():
			c.log.Warnf("task %s: %s cannot reach %v from %v", task.ID, id, dest, from)
		}
		if err := c.world.PlaceObserver(id, dest); err != nil {
			return err
		}
		st.Observed.Add(grid.Classify(dest, target))
		o := c.order(task, target)
		o.Destination = &dest
		o.Route = route
		orders[id] = o
	}

	fresh, err := c.collect(ctx, task.ID, func() {
		c.dispatcher.ExecuteOrders(ctx, orders)
	})
	if err != nil {
		return err
	}
	st.Dispatched = append([]string(nil), sel.IDs...)
	st.Rounds = append(st.Rounds, st.Dispatched)
	st.Pending = fresh
	c.publishRound(task.ID, st, StateActiveDispatch, st.Dispatched, len(fresh), -1)
	st.State = StateActiveJudge
	return nil
}

func (c *Controller) activeJudge(ctx context.Context, task model.Task, st *EscalationState) error {
	decision, err := c.evaluate(ctx, task, st, st.Pending)
	if err != nil {
		return err
	}
	st.Pending = nil
	c.publishRound(task.ID, st, StateActiveJudge, st.Dispatched, 0, decision)
	if decision == model.DecisionStop {
		st.State = StateDone
		return nil
	}
	st.Exclude(st.Dispatched...)
	c.world.RemoveObservers(st.Dispatched...)
	st.Iteration++
	if st.Iteration >= c.cfg.MaxIterations {
		st.State = StateBudgetExhausted
		return nil
	}
	st.State = StateActiveDispatch
	return nil
}

// evaluate synthesises fresh reports into the new best summary and asks the
// judge. A round without reports keeps the previous best and continues.
func (c *Controller) evaluate(ctx context.Context, task model.Task, st *EscalationState, fresh []model.Report) (model.Decision, error) {
	if len(fresh) == 0 {
		c.log.Warnf("task %s: round produced no reports", task.ID)
		return model.DecisionContinue, nil
	}
	summary, err := c.synth.Synthesize(ctx, task, fresh)
	if err != nil {
		return model.DecisionContinue, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	st.Best = &summary
	decision, err := c.judge.Judge(ctx, task.Description, summary)
	if err != nil {
		return model.DecisionContinue, fmt.Errorf("%w: %v", ErrJudgment, err)
	}
	c.log.Debugw("judged round", map[string]any{"task_id": task.ID, "reports": len(fresh), "decision": decision.String()})
	return decision, nil
}

// collect runs round and returns the reports appended to the task list
// while it ran.
func (c *Controller) collect(ctx context.Context, taskID string, round func()) ([]model.Report, error) {
	key := store.ReportKey(taskID)
	before, err := c.reports.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	round()
	after, err := c.reports.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if len(after) < len(before) {
		return nil, fmt.Errorf("report list %s shrank from %d to %d", key, len(before), len(after))
	}
	return after[len(before):], nil
}

func (c *Controller) candidates(st *EscalationState) []model.ObserverSnapshot {
	var out []model.ObserverSnapshot
	for id, card := range st.Cards {
		if st.IsExcluded(id) {
			continue
		}
		pos, ok := c.world.ObserverPosition(id)
		if !ok {
			continue
		}
		card.Position = pos
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Controller) order(task model.Task, target model.Position) model.TaskOrder {
	return model.TaskOrder{
		TaskID:      task.ID,
		Location:    task.Location,
		Description: task.Description,
		Target:      target,
		Verbose:     c.cfg.Verbose,
	}
}

func (c *Controller) publishRound(taskID string, st *EscalationState, state State, ids []string, reports int, d model.Decision) {
	decision := ""
	if d >= 0 {
		decision = d.String()
	}
	c.publish(events.RoundEvent{
		TaskID:     taskID,
		Iteration:  st.Iteration,
		State:      state.String(),
		Dispatched: append([]string(nil), ids...),
		Reports:    reports,
		Decision:   decision,
		Time:       time.Now(),
	})
}

func (c *Controller) publish(ev eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
