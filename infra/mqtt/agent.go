package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/logger"
)

// Agent answers task orders and discovery requests on behalf of a local
// observer.
type Agent struct {
	tr  Transport
	obs dispatch.Observer
	log logger.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAgent serves obs over tr.
func NewAgent(tr Transport, obs dispatch.Observer, log logger.Logger) (*Agent, error) {
	if tr == nil || obs == nil {
		return nil, fmt.Errorf("mqtt: agent needs a transport and an observer")
	}
	return &Agent{tr: tr, obs: obs, log: logger.OrNop(log)}, nil
}

// Start subscribes to the observer's task topic and to the discovery
// broadcast. Work started by a message is canceled with ctx.
func (a *Agent) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	if err := a.tr.Subscribe(TaskTopic(a.obs.ID()), QoSTask, a.onTask); err != nil {
		return err
	}
	if err := a.tr.Subscribe(DiscoveryTopic, QoSDiscovery, a.onDiscovery); err != nil {
		return err
	}
	a.log.Infof("observer %s listening on %s", a.obs.ID(), TaskTopic(a.obs.ID()))
	return nil
}

// Stop unsubscribes and waits for in-flight work.
func (a *Agent) Stop() error {
	err := a.tr.Unsubscribe(TaskTopic(a.obs.ID()), DiscoveryTopic)
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return err
}

// Run starts the agent and blocks until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Stop()
}

func (a *Agent) onTask(topic string, payload []byte) {
	var m TaskMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		a.log.Errorf("invalid task payload on %s: %v", topic, err)
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		start := time.Now()
		out := ReportMessage{OrderID: m.OrderID, ObserverID: a.obs.ID()}
		rep, err := a.obs.ExecuteTask(a.ctx, m.Order)
		if err != nil {
			out.Error = err.Error()
			a.log.Warnf("task %s failed: %v", m.Order.TaskID, err)
		} else {
			if rep.ObserverID == "" {
				rep.ObserverID = a.obs.ID()
			}
			if rep.TaskID == "" {
				rep.TaskID = m.Order.TaskID
			}
			out.Report = &rep
		}
		if err := a.tr.Publish(ReportTopic(a.obs.ID()), QoSReport, out); err != nil {
			a.log.Errorf("publish report for %s: %v", m.OrderID, err)
			return
		}
		a.log.Debugw("answered order", map[string]any{"order_id": m.OrderID, "task_id": m.Order.TaskID, "elapsed_ms": time.Since(start).Milliseconds()})
	}()
}

func (a *Agent) onDiscovery(topic string, payload []byte) {
	var req DiscoveryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		a.log.Errorf("invalid discovery payload on %s: %v", topic, err)
		return
	}
	if req.ObserverID != "" && req.ObserverID != a.obs.ID() {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		out := SnapshotMessage{RequestID: req.RequestID}
		snap, err := a.obs.Snapshot(a.ctx)
		if err != nil {
			out.Error = err.Error()
		} else {
			if snap.ID == "" {
				snap.ID = a.obs.ID()
			}
			out.Snapshot = &snap
		}
		if err := a.tr.Publish(ResponseTopic(a.obs.ID()), QoSDiscovery, out); err != nil {
			a.log.Errorf("publish snapshot for %s: %v", req.RequestID, err)
		}
	}()
}
