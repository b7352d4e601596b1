package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/logger"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/internal/eventbus"
)

// ErrReportTimeout is returned when a remote observer does not answer before
// the report timeout.
var ErrReportTimeout = errors.New("timeout waiting for observer report")

const responseBuffer = 64

// FleetDiscovery is the controller side of the MQTT transport. It
// broadcasts snapshot requests, routes reports and answers back to their
// waiting callers, and hands out RemoteObservers.
type FleetDiscovery struct {
	tr      Transport
	timeout time.Duration
	log     logger.Logger
	bus     eventbus.EventBus

	mu       sync.Mutex
	orders   map[string]chan ReportMessage
	requests map[string]chan SnapshotMessage
}

// Option configures a FleetDiscovery.
type Option func(*FleetDiscovery)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(d *FleetDiscovery) { d.log = logger.OrNop(l) } }

// WithEventBus publishes a DiscoveryEvent after every broadcast.
func WithEventBus(b eventbus.EventBus) Option { return func(d *FleetDiscovery) { d.bus = b } }

// NewFleetDiscovery returns a discovery hub over tr. timeout bounds every
// single report or snapshot wait.
func NewFleetDiscovery(tr Transport, timeout time.Duration, opts ...Option) (*FleetDiscovery, error) {
	if tr == nil {
		return nil, fmt.Errorf("mqtt: nil transport")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("mqtt: report timeout must be positive")
	}
	d := &FleetDiscovery{
		tr:       tr,
		timeout:  timeout,
		log:      logger.NopLogger{},
		orders:   make(map[string]chan ReportMessage),
		requests: make(map[string]chan SnapshotMessage),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Start subscribes to the report and response wildcards.
func (d *FleetDiscovery) Start() error {
	if err := d.tr.Subscribe(ReportWildcard, QoSReport, d.onReport); err != nil {
		return err
	}
	return d.tr.Subscribe(ResponseWildcard, QoSDiscovery, d.onResponse)
}

// Stop drops the subscriptions made by Start.
func (d *FleetDiscovery) Stop() error {
	return d.tr.Unsubscribe(ReportWildcard, ResponseWildcard)
}

// observerFromTopic returns the segment at index i of topic.
func observerFromTopic(topic string, i int) string {
	parts := strings.Split(topic, "/")
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func (d *FleetDiscovery) onReport(topic string, payload []byte) {
	var m ReportMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		d.log.Errorf("invalid report payload on %s: %v", topic, err)
		return
	}
	if m.ObserverID == "" {
		m.ObserverID = observerFromTopic(topic, 1)
	}
	d.mu.Lock()
	ch, ok := d.orders[m.OrderID]
	d.mu.Unlock()
	if !ok {
		d.log.Debugf("report for unknown order %s from %s", m.OrderID, m.ObserverID)
		return
	}
	select {
	case ch <- m:
	default:
	}
}

func (d *FleetDiscovery) onResponse(topic string, payload []byte) {
	var m SnapshotMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		d.log.Errorf("invalid discovery payload on %s: %v", topic, err)
		return
	}
	if m.Snapshot != nil && m.Snapshot.ID == "" {
		m.Snapshot.ID = observerFromTopic(topic, 2)
	}
	d.mu.Lock()
	ch, ok := d.requests[m.RequestID]
	d.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
		d.log.Warnf("discovery response dropped for request %s", m.RequestID)
	}
}

func (d *FleetDiscovery) register(id string, buffer int) chan SnapshotMessage {
	ch := make(chan SnapshotMessage, buffer)
	d.mu.Lock()
	d.requests[id] = ch
	d.mu.Unlock()
	return ch
}

func (d *FleetDiscovery) release(id string) {
	d.mu.Lock()
	delete(d.requests, id)
	delete(d.orders, id)
	d.mu.Unlock()
}

// Discover broadcasts a snapshot request and collects the answers until
// wait elapses or ctx is done. Snapshots are returned ordered by id.
func (d *FleetDiscovery) Discover(ctx context.Context, wait time.Duration) ([]model.ObserverSnapshot, error) {
	reqID := uuid.NewString()
	ch := d.register(reqID, responseBuffer)
	defer d.release(reqID)

	req := DiscoveryRequest{RequestID: reqID, Timestamp: time.Now().UnixMilli()}
	if err := d.tr.Publish(DiscoveryTopic, QoSDiscovery, req); err != nil {
		return nil, err
	}

	seen := make(map[string]model.ObserverSnapshot)
	timer := time.NewTimer(wait)
	defer timer.Stop()
loop:
	for {
		select {
		case m := <-ch:
			if m.Snapshot == nil {
				d.log.Warnf("discovery answer without snapshot: %s", m.Error)
				continue
			}
			seen[m.Snapshot.ID] = *m.Snapshot
		case <-ctx.Done():
			break loop
		case <-timer.C:
			break loop
		}
	}

	out := make([]model.ObserverSnapshot, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	d.log.Infof("discovered %d observers", len(out))
	if d.bus != nil {
		d.bus.Publish(events.DiscoveryEvent{Pings: 1, Responses: len(out), Component: "mqtt"})
	}
	return out, nil
}

// Fleet discovers the responding observers and registers a RemoteObserver
// for each of them.
func (d *FleetDiscovery) Fleet(ctx context.Context, wait time.Duration) (*dispatch.Fleet, error) {
	snaps, err := d.Discover(ctx, wait)
	if err != nil {
		return nil, err
	}
	obs := make([]dispatch.Observer, len(snaps))
	for i, s := range snaps {
		obs[i] = d.Observer(s.ID)
	}
	return dispatch.NewFleet(obs...)
}

// Observer returns the remote handle for id. No traffic is generated.
func (d *FleetDiscovery) Observer(id string) *RemoteObserver {
	return &RemoteObserver{id: id, hub: d}
}

func (d *FleetDiscovery) snapshot(ctx context.Context, id string) (model.ObserverSnapshot, error) {
	reqID := uuid.NewString()
	ch := d.register(reqID, 1)
	defer d.release(reqID)

	req := DiscoveryRequest{RequestID: reqID, ObserverID: id, Timestamp: time.Now().UnixMilli()}
	if err := d.tr.Publish(DiscoveryTopic, QoSDiscovery, req); err != nil {
		return model.ObserverSnapshot{}, err
	}
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case m := <-ch:
		if m.Error != "" {
			return model.ObserverSnapshot{}, errors.New(m.Error)
		}
		if m.Snapshot == nil {
			return model.ObserverSnapshot{}, fmt.Errorf("observer %s sent an empty snapshot", id)
		}
		return *m.Snapshot, nil
	case <-ctx.Done():
		return model.ObserverSnapshot{}, ctx.Err()
	case <-timer.C:
		return model.ObserverSnapshot{}, fmt.Errorf("%w: snapshot of %s", ErrReportTimeout, id)
	}
}

func (d *FleetDiscovery) execute(ctx context.Context, id string, order model.TaskOrder) (model.Report, error) {
	orderID := uuid.NewString()
	ch := make(chan ReportMessage, 1)
	d.mu.Lock()
	d.orders[orderID] = ch
	d.mu.Unlock()
	defer d.release(orderID)

	msg := TaskMessage{OrderID: orderID, Order: order, Timestamp: time.Now().UnixMilli()}
	if err := d.tr.Publish(TaskTopic(id), QoSTask, msg); err != nil {
		return model.Report{}, err
	}
	d.log.Debugf("sent order %s to %s", orderID, id)

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case m := <-ch:
		switch {
		case m.ObserverID != id:
			return model.Report{}, fmt.Errorf("order %s answered by %s instead of %s", orderID, m.ObserverID, id)
		case m.Error != "":
			return model.Report{}, errors.New(m.Error)
		case m.Report == nil:
			return model.Report{}, fmt.Errorf("observer %s sent an empty report", id)
		}
		return *m.Report, nil
	case <-ctx.Done():
		return model.Report{}, ctx.Err()
	case <-timer.C:
		return model.Report{}, fmt.Errorf("%w: order %s to %s", ErrReportTimeout, orderID, id)
	}
}
