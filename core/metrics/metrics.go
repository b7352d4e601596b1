package metrics

import "time"

// TaskResult is the per-observer outcome of a dispatched task.
type TaskResult struct {
	TaskID     string
	ObserverID string
	Success    bool
	Latency    time.Duration
	Error      string
	Time       time.Time
}

// MetricsSink records task results for observability purposes.
type MetricsSink interface {
	RecordTaskResults(results []TaskResult) error
}

// RoundEvent captures a single controller round.
type RoundEvent struct {
	TaskID     string
	Iteration  int
	State      string
	Dispatched int
	Reports    int
	Decision   string
	Time       time.Time
}

// RoundRecorder records controller rounds.
type RoundRecorder interface {
	RecordRound(ev RoundEvent) error
}

// OutcomeEvent captures the terminal state of a query.
type OutcomeEvent struct {
	TaskID     string
	State      string
	Iterations int
	Exhausted  bool
	Error      string
	Duration   time.Duration
	Time       time.Time
}

// OutcomeRecorder records finished queries.
type OutcomeRecorder interface {
	RecordOutcome(ev OutcomeEvent) error
}

// FleetDiscoveryEvent captures data about a discovery cycle.
type FleetDiscoveryEvent struct {
	Pings     int
	Responses int
	Component string
	Time      time.Time
}

// FleetDiscoveryRecorder records fleet discovery events.
type FleetDiscoveryRecorder interface {
	RecordFleetDiscovery(ev FleetDiscoveryEvent) error
}

// FleetSizeRecorder records the number of observers known to the fleet.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements MetricsSink and every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTaskResults([]TaskResult) error           { return nil }
func (NopSink) RecordRound(RoundEvent) error                   { return nil }
func (NopSink) RecordOutcome(OutcomeEvent) error               { return nil }
func (NopSink) RecordFleetDiscovery(FleetDiscoveryEvent) error { return nil }
func (NopSink) RecordFleetSize(int) error                      { return nil }
