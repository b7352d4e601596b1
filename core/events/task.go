package events

import "time"

// TaskEvent is published for every observer task the dispatcher runs.
type TaskEvent struct {
	TaskID     string
	ObserverID string
	Success    bool
	Err        error
	Latency    time.Duration
}

// DiscoveryEvent is published after a fleet discovery cycle.
type DiscoveryEvent struct {
	Pings     int
	Responses int
	Component string
}
