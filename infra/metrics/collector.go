package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/logger"
	coremetrics "github.com/kilianp07/cityguard/core/metrics"
	"github.com/kilianp07/cityguard/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited. Sink errors are logged at
// warn level on log, which may be nil.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	log = logger.OrNop(log)
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("metrics sink: recording %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	now := time.Now()
	switch e := ev.(type) {
	case events.TaskEvent:
		res := coremetrics.TaskResult{
			TaskID:     e.TaskID,
			ObserverID: e.ObserverID,
			Success:    e.Success,
			Latency:    e.Latency,
			Time:       now,
		}
		if e.Err != nil {
			res.Error = e.Err.Error()
		}
		return sink.RecordTaskResults([]coremetrics.TaskResult{res})
	case events.RoundEvent:
		if r, ok := sink.(coremetrics.RoundRecorder); ok {
			return r.RecordRound(coremetrics.RoundEvent{
				TaskID:     e.TaskID,
				Iteration:  e.Iteration,
				State:      e.State,
				Dispatched: len(e.Dispatched),
				Reports:    e.Reports,
				Decision:   e.Decision,
				Time:       e.Time,
			})
		}
	case events.OutcomeEvent:
		if r, ok := sink.(coremetrics.OutcomeRecorder); ok {
			out := coremetrics.OutcomeEvent{
				TaskID:     e.TaskID,
				State:      e.State,
				Iterations: e.Iterations,
				Exhausted:  e.Exhausted,
				Duration:   e.Duration,
				Time:       now,
			}
			if e.Err != nil {
				out.Error = e.Err.Error()
			}
			return r.RecordOutcome(out)
		}
	case events.DiscoveryEvent:
		var errs []error
		if r, ok := sink.(coremetrics.FleetDiscoveryRecorder); ok {
			errs = append(errs, r.RecordFleetDiscovery(coremetrics.FleetDiscoveryEvent{
				Pings:     e.Pings,
				Responses: e.Responses,
				Component: e.Component,
				Time:      now,
			}))
		}
		if r, ok := sink.(coremetrics.FleetSizeRecorder); ok {
			errs = append(errs, r.RecordFleetSize(e.Responses))
		}
		return errors.Join(errs...)
	}
	return nil
}
