package events

import "time"

// RoundEvent describes one controller round.
type RoundEvent struct {
	TaskID    string
	Iteration int
	// State is the controller state that produced the round.
	State string
	// Dispatched lists observers sent out during the round, if any.
	Dispatched []string
	Reports    int
	// Decision is empty when the round produced no fresh reports.
	Decision string
	Time     time.Time
}

// OutcomeEvent is published once a query reaches a terminal state.
type OutcomeEvent struct {
	TaskID     string
	State      string
	Iterations int
	Exhausted  bool
	Err        error
	Duration   time.Duration
}
