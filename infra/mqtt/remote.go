package mqtt

import (
	"context"

	"github.com/kilianp07/cityguard/core/model"
)

// RemoteObserver is a dispatch.Observer reached over the broker.
type RemoteObserver struct {
	id  string
	hub *FleetDiscovery
}

func (r *RemoteObserver) ID() string { return r.id }

// Snapshot asks the remote agent for its current state.
func (r *RemoteObserver) Snapshot(ctx context.Context) (model.ObserverSnapshot, error) {
	return r.hub.snapshot(ctx, r.id)
}

// ExecuteTask publishes order on the observer's task topic and waits for the
// matching report.
func (r *RemoteObserver) ExecuteTask(ctx context.Context, order model.TaskOrder) (model.Report, error) {
	return r.hub.execute(ctx, r.id, order)
}
