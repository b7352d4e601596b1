package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cityguard/app/plugins"
	"github.com/kilianp07/cityguard/config"
	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/grid"
	coremetrics "github.com/kilianp07/cityguard/core/metrics"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/core/reasoning"
	"github.com/kilianp07/cityguard/core/selection"
	"github.com/kilianp07/cityguard/core/store"
	"github.com/kilianp07/cityguard/infra/llm"
	"github.com/kilianp07/cityguard/infra/logger"
	"github.com/kilianp07/cityguard/infra/metrics"
	"github.com/kilianp07/cityguard/infra/mqtt"
	_ "github.com/kilianp07/cityguard/infra/store"
	"github.com/kilianp07/cityguard/internal/eventbus"
	"github.com/kilianp07/cityguard/simulator"
)

// Service owns the long lived collaborators shared by every query: the base
// city map, the fleet and its dispatcher, the reasoning backends and the
// metrics pipeline.
type Service struct {
	cfg        *config.Config
	base       *grid.World
	dispatcher *dispatch.Dispatcher
	policy     selection.Policy
	reasoning  plugins.Reasoning
	reports    store.ReportStore
	sink       coremetrics.MetricsSink
	bus        *eventbus.Bus
	log        logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}

	client    *mqtt.PahoClient
	hub       *mqtt.FleetDiscovery
	cancel    context.CancelFunc
	collector <-chan struct{}
}

// Option customises a Service.
type Option func(*options)

type options struct {
	world     *grid.World
	observers []dispatch.Observer
	reasoner  reasoning.Reasoner
}

// WithWorld replaces the generated base map.
func WithWorld(w *grid.World) Option { return func(o *options) { o.world = w } }

// WithObservers uses obs as the fleet instead of building one from the
// configuration.
func WithObservers(obs ...dispatch.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

// WithReasoner replaces the OpenAI backed reasoner.
func WithReasoner(r reasoning.Reasoner) Option { return func(o *options) { o.reasoner = r } }

// New creates a Service from the configuration. Background work started here
// stops on Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		cfg:      cfg,
		log:      logger.New("service"),
		cancel:   cancel,
		bus:      eventbus.New(),
		inFlight: make(map[string]struct{}),
	}
	if err := s.init(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) init(ctx context.Context, o options) error {
	var err error
	s.base = o.world
	if s.base == nil {
		if s.base, err = grid.New(s.cfg.Grid.Width, s.cfg.Grid.Height, s.cfg.Grid.Options()); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}
	if s.reports, err = store.New(s.cfg.Store); err != nil {
		return fmt.Errorf("report store: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(s.cfg.Metrics.Sinks); err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	s.collector = metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	reasoner := o.reasoner
	if reasoner == nil && s.cfg.LLM.Enabled {
		if reasoner, err = llm.NewOpenAIReasoner(s.cfg.LLM, logger.New("llm")); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}
	deps := plugins.Deps{Reasoner: reasoner, Log: logger.New("selection")}
	s.policy, err = plugins.NewPolicy(s.cfg.Selection.Policy, map[string]any{
		"distance_weight": s.cfg.Selection.DistanceWeight,
		"speed_weight":    s.cfg.Selection.SpeedWeight,
	}, deps)
	if err != nil {
		return err
	}
	backend := "heuristic"
	if reasoner != nil {
		backend = "llm"
	}
	if s.reasoning, err = plugins.NewReasoning(backend, nil, deps); err != nil {
		return err
	}

	fleet, err := s.buildFleet(ctx, o.observers)
	if err != nil {
		return err
	}
	s.dispatcher, err = dispatch.New(fleet, s.cfg.Dispatch,
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithEventBus(s.bus),
		dispatch.WithReportStore(s.reports),
	)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	s.log.Infof("service ready: %dx%d grid, %d observers, policy %s, reasoning %s",
		s.base.Width(), s.base.Height(), fleet.Len(), s.cfg.Selection.Policy, backend)
	return nil
}

func (s *Service) buildFleet(ctx context.Context, injected []dispatch.Observer) (*dispatch.Fleet, error) {
	if len(injected) > 0 {
		return dispatch.NewFleet(injected...)
	}
	if s.cfg.Fleet.Mode == config.FleetMQTT {
		return s.discoverFleet(ctx)
	}
	var tmpl map[string]simulator.ObserverTemplate
	if s.cfg.Fleet.LayoutFile != "" {
		var err error
		if tmpl, err = simulator.LoadLayoutFile(s.cfg.Fleet.LayoutFile); err != nil {
			return nil, err
		}
	}
	var rng *rand.Rand
	if s.cfg.Grid.Seed != 0 {
		rng = rand.New(rand.NewSource(s.cfg.Grid.Seed + 1))
	}
	sims, err := simulator.GenerateFleet(s.base, simulator.FleetConfig{
		Size:        s.cfg.Fleet.Size,
		FailureRate: s.cfg.Fleet.FailureRate,
		Rand:        rng,
	}, tmpl)
	if err != nil {
		return nil, fmt.Errorf("simulated fleet: %w", err)
	}
	obs := make([]dispatch.Observer, len(sims))
	for i, o := range sims {
		obs[i] = o
	}
	s.bus.Publish(events.DiscoveryEvent{Pings: 1, Responses: len(obs), Component: "simulator"})
	return dispatch.NewFleet(obs...)
}

func (s *Service) discoverFleet(ctx context.Context) (*dispatch.Fleet, error) {
	client, err := mqtt.NewPahoClient(s.cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	s.client = client
	hub, err := mqtt.NewFleetDiscovery(client, s.cfg.MQTT.ReportTimeout(),
		mqtt.WithLogger(logger.New("discovery")),
		mqtt.WithEventBus(s.bus),
	)
	if err != nil {
		return nil, err
	}
	if err := hub.Start(); err != nil {
		return nil, fmt.Errorf("fleet discovery: %w", err)
	}
	s.hub = hub
	return hub.Fleet(ctx, s.cfg.Fleet.DiscoveryWait())
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return "task-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Query runs one task to completion on a private copy of the base map. An
// empty task ID is generated. A task ID that is already running is refused
// with escalation.ErrTaskInProgress since both queries would share reports.
func (s *Service) Query(ctx context.Context, task model.Task) (escalation.Outcome, error) {
	if task.ID == "" {
		task.ID = NewTaskID()
	}
	if !s.acquire(task.ID) {
		return escalation.Outcome{TaskID: task.ID}, fmt.Errorf("%w: %s", escalation.ErrTaskInProgress, task.ID)
	}
	defer s.release(task.ID)
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	ctrl, err := escalation.New(escalation.Deps{
		World:       s.base.Clone(),
		Dispatcher:  s.dispatcher,
		Policy:      s.policy,
		Synthesizer: s.reasoning.Synthesizer,
		Judge:       s.reasoning.Judge,
		Logger:      logger.New("escalation"),
		Bus:         s.bus,
	}, s.cfg.Escalation)
	if err != nil {
		return escalation.Outcome{TaskID: task.ID}, err
	}
	s.log.Infof("task %s: %q at %s", task.ID, task.Description, task.Location)
	return ctrl.Run(ctx, task)
}

func (s *Service) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// Fleet returns the observers the service dispatches to.
func (s *Service) Fleet() *dispatch.Fleet { return s.dispatcher.Fleet() }

// World returns the base map queries are cloned from.
func (s *Service) World() *grid.World { return s.base }

// Snapshots queries every observer, skipping the ones that fail.
func (s *Service) Snapshots(ctx context.Context) []model.ObserverSnapshot {
	return s.dispatcher.Snapshots(ctx, nil).Values()
}

// Reports returns the observer reports stored for taskID.
func (s *Service) Reports(ctx context.Context, taskID string) ([]model.Report, error) {
	return s.reports.List(ctx, store.ReportKey(taskID))
}

// Close stops background work and releases the store, sinks and broker
// connection.
func (s *Service) Close() error {
	var errs []error
	if s.hub != nil {
		errs = append(errs, s.hub.Stop())
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	s.cancel()
	s.bus.Close()
	if s.collector != nil {
		<-s.collector
	}
	if s.reports != nil {
		errs = append(errs, s.reports.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
