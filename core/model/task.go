package model

import (
	"strings"
	"time"
)

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Task is one investigation request handled by a single query.
type Task struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Target      *Position `json:"target,omitempty"`
	Coordinates *LatLon   `json:"coordinates,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskOrder is what an observer receives when asked to execute a task.
type TaskOrder struct {
	TaskID      string   `json:"task_id"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Target      Position `json:"target"`
	// Destination is where the observer must observe from. Route is the
	// planned path towards it and may be empty when unreachable.
	Destination *Position `json:"destination,omitempty"`
	Route       Path      `json:"route,omitempty"`
	Verbose     bool      `json:"verbose"`
}

// Report is the evidence produced by one observer for one task.
type Report struct {
	TaskID     string    `json:"task_id"`
	ObserverID string    `json:"observer_id"`
	Heading    float64   `json:"heading"`
	Position   Position  `json:"position"`
	ObservedAt time.Time `json:"observed_at"`
	Result     string    `json:"result"`
	Evidence   string    `json:"evidence"`
}

// Summary is the multi-view report synthesised from observer reports.
type Summary struct {
	TaskID      string      `json:"task_id"`
	Description string      `json:"task_description"`
	ObserverIDs []string    `json:"observer_ids"`
	ObservedAt  []time.Time `json:"observed_at"`

	// Headings holds the heading of each contributing observer, in
	// ObserverIDs order.
	Headings []float64 `json:"headings,omitempty"`
	Summary  string    `json:"summary"`
}

// Decision is the binary signal returned by the judgment capability.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionStop
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseDecision maps "continue"/"stop" to a Decision, ignoring case and
// surrounding whitespace.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continue":
		return DecisionContinue, true
	case "stop":
		return DecisionStop, true
	}
	return DecisionContinue, false
}
