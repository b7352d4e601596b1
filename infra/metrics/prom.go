package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cityguard/core/metrics"
)

// PromSink records task, round and outcome events in Prometheus metrics.
type PromSink struct {
	tasks    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	rounds   *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	fleet    prometheus.Gauge
}

// NewPromSink registers the collectors on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	tasks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguard_observer_tasks_total",
		Help: "Total number of observer tasks by outcome",
	}, []string{"observer_id", "success"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cityguard_observer_task_latency_seconds",
		Help:    "Time between task dispatch and report",
		Buckets: prometheus.DefBuckets,
	}, []string{"success"}))
	if err != nil {
		return nil, err
	}
	rounds, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguard_escalation_rounds_total",
		Help: "Number of controller rounds by state and decision",
	}, []string{"state", "decision"}))
	if err != nil {
		return nil, err
	}
	outcomes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguard_query_outcomes_total",
		Help: "Number of finished queries by terminal state",
	}, []string{"state"}))
	if err != nil {
		return nil, err
	}
	fleet, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cityguard_fleet_observers",
		Help: "Number of observers known to the fleet",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{tasks: tasks, latency: latency, rounds: rounds, outcomes: outcomes, fleet: fleet}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordTaskResults counts each task and observes its latency.
func (s *PromSink) RecordTaskResults(res []coremetrics.TaskResult) error {
	for _, r := range res {
		ok := strconv.FormatBool(r.Success)
		s.tasks.WithLabelValues(r.ObserverID, ok).Inc()
		s.latency.WithLabelValues(ok).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordRound counts a controller round.
func (s *PromSink) RecordRound(ev coremetrics.RoundEvent) error {
	decision := ev.Decision
	if decision == "" {
		decision = "none"
	}
	s.rounds.WithLabelValues(ev.State, decision).Inc()
	return nil
}

// RecordOutcome counts a finished query.
func (s *PromSink) RecordOutcome(ev coremetrics.OutcomeEvent) error {
	s.outcomes.WithLabelValues(ev.State).Inc()
	return nil
}

// RecordFleetSize sets the gauge to the number of known observers.
func (s *PromSink) RecordFleetSize(size int) error {
	if s.fleet != nil {
		s.fleet.Set(float64(size))
	}
	return nil
}
