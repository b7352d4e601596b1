// Package dispatch runs observer capabilities concurrently across a fleet.
// A round blocks until every worker has finished; one observer failing never
// aborts its siblings.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/store"
	"github.com/kilianp07/cityguard/internal/eventbus"
)

// Capability names an Observer method the dispatcher can invoke.
type Capability string

const (
	CapabilitySnapshot    Capability = "snapshot"
	CapabilityExecuteTask Capability = "execute_task"
)

// Result maps every addressed observer id to its value, or nil when the
// observer failed.
type Result[T any] map[string]*T

// Succeeded returns the ids with a value, sorted.
func (r Result[T]) Succeeded() []string { return r.ids(true) }

// Failed returns the ids whose call failed, sorted.
func (r Result[T]) Failed() []string { return r.ids(false) }

func (r Result[T]) ids(ok bool) []string {
	var out []string
	for id, v := range r {
		if (v != nil) == ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Values returns the successful values ordered by observer id.
func (r Result[T]) Values() []T {
	ids := r.Succeeded()
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = *r[id]
	}
	return out
}

// Dispatcher fans capability calls out to a bounded worker pool.
type Dispatcher struct {
	fleet   *Fleet
	workers int
	timeout time.Duration
	store   store.ReportStore
	bus     eventbus.EventBus
	log     logger.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(l logger.Logger) Option { return func(d *Dispatcher) { d.log = logger.OrNop(l) } }

// WithEventBus publishes a TaskEvent for every executed task.
func WithEventBus(b eventbus.EventBus) Option { return func(d *Dispatcher) { d.bus = b } }

// WithReportStore makes task workers append their report under
// store.ReportKey before the round returns.
func WithReportStore(s store.ReportStore) Option { return func(d *Dispatcher) { d.store = s } }

// New returns a dispatcher over fleet.
func New(fleet *Fleet, cfg Config, opts ...Option) (*Dispatcher, error) {
	if fleet == nil {
		return nil, fmt.Errorf("dispatch: nil fleet")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	d := &Dispatcher{
		fleet:   fleet,
		workers: cfg.Workers,
		timeout: cfg.TaskTimeout(),
		log:     logger.NopLogger{},
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Fleet returns the registry the dispatcher addresses.
func (d *Dispatcher) Fleet() *Fleet { return d.fleet }

// Store returns the report store task workers append to, or nil.
func (d *Dispatcher) Store() store.ReportStore { return d.store }

// Run invokes call on every registered observer in ids and waits for all of
// them. Unknown ids are skipped and duplicates collapse to one call. Errors
// and panics are logged and recorded as nil entries.
func Run[T any](ctx context.Context, d *Dispatcher, capability Capability, ids []string, call func(context.Context, Observer) (T, error)) Result[T] {
	targets := d.resolve(ids)
	res := make(Result[T], len(targets))
	roundSize.Observe(float64(len(targets)))
	if len(targets) == 0 {
		return res
	}
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(d.workers)
	for _, o := range targets {
		o := o
		g.Go(func() error {
			v, err := invoke(ctx, d, capability, o, call)
			mu.Lock()
			if err != nil {
				res[o.ID()] = nil
			} else {
				res[o.ID()] = &v
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (d *Dispatcher) resolve(ids []string) []Observer {
	seen := make(map[string]struct{}, len(ids))
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		o, ok := d.fleet.Get(id)
		if !ok {
			d.log.Debugf("skipping unknown observer %s", id)
			continue
		}
		out = append(out, o)
	}
	return out
}

func invoke[T any](ctx context.Context, d *Dispatcher, capability Capability, o Observer, call func(context.Context, Observer) (T, error)) (v T, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			panicsTotal.Inc()
			err = fmt.Errorf("observer %s panicked: %v", o.ID(), r)
		}
		elapsed := time.Since(start)
		outcome := "success"
		if err != nil {
			outcome = "failure"
			d.log.Warnf("observer %s %s failed: %v", o.ID(), capability, err)
		}
		tasksTotal.WithLabelValues(string(capability), outcome).Inc()
		taskLatency.WithLabelValues(string(capability)).Observe(elapsed.Seconds())
	}()
	return call(ctx, o)
}

// Snapshots broadcasts the snapshot capability. A nil ids slice addresses
// the whole fleet.
func (d *Dispatcher) Snapshots(ctx context.Context, ids []string) Result[model.ObserverSnapshot] {
	if ids == nil {
		ids = d.fleet.IDs()
	}
	return Run(ctx, d, CapabilitySnapshot, ids, func(ctx context.Context, o Observer) (model.ObserverSnapshot, error) {
		s, err := o.Snapshot(ctx)
		if err != nil {
			return s, err
		}
		if s.ID == "" {
			s.ID = o.ID()
		}
		if s.ID != o.ID() {
			return s, fmt.Errorf("snapshot id %s does not match observer %s", s.ID, o.ID())
		}
		return s, s.Validate()
	})
}

// ExecuteTask sends the same order to every observer in ids.
func (d *Dispatcher) ExecuteTask(ctx context.Context, ids []string, order model.TaskOrder) Result[model.Report] {
	orders := make(map[string]model.TaskOrder, len(ids))
	for _, id := range ids {
		orders[id] = order
	}
	return d.ExecuteOrders(ctx, orders)
}

// ExecuteOrders sends each observer its own order. Successful reports are
// appended to the report store by the worker that produced them.
func (d *Dispatcher) ExecuteOrders(ctx context.Context, orders map[string]model.TaskOrder) Result[model.Report] {
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Run(ctx, d, CapabilityExecuteTask, ids, func(ctx context.Context, o Observer) (model.Report, error) {
		order := orders[o.ID()]
		start := time.Now()
		rep, err := d.execute(ctx, o, order)
		d.publish(events.TaskEvent{
			TaskID:     order.TaskID,
			ObserverID: o.ID(),
			Success:    err == nil,
			Err:        err,
			Latency:    time.Since(start),
		})
		return rep, err
	})
}

func (d *Dispatcher) execute(ctx context.Context, o Observer, order model.TaskOrder) (model.Report, error) {
	rep, err := o.ExecuteTask(ctx, order)
	if err != nil {
		return rep, err
	}
	if rep.TaskID == "" {
		rep.TaskID = order.TaskID
	}
	if rep.ObserverID == "" {
		rep.ObserverID = o.ID()
	}
	if rep.ObservedAt.IsZero() {
		rep.ObservedAt = time.Now().UTC()
	}
	if d.store != nil {
		if err := d.store.Append(ctx, store.ReportKey(order.TaskID), rep); err != nil {
			return rep, fmt.Errorf("store report: %w", err)
		}
	}
	return rep, nil
}

func (d *Dispatcher) publish(ev eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}
