package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	taskLatency *prometheus.HistogramVec
	tasksTotal  *prometheus.CounterVec
	roundSize   prometheus.Histogram
	panicsTotal prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Histogram, prometheus.Counter) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_task_latency_seconds",
			Help:    "Latency of a single observer capability call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"capability"},
	)
	tasks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_tasks_total",
			Help: "Number of observer capability calls by outcome",
		},
		[]string{"capability", "outcome"},
	)
	size := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_round_size",
			Help:    "Number of observers addressed per dispatch round",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)
	panics := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_worker_panics_total",
			Help: "Number of observer calls that panicked",
		},
	)
	return lat, tasks, size, panics
}

func init() {
	taskLatency, tasksTotal, roundSize, panicsTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(taskLatency, tasksTotal, roundSize, panicsTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	taskLatency, tasksTotal, roundSize, panicsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
