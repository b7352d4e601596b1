package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cityguard/core/events"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/internal/eventbus"
)

// memoryBroker is an in-process Transport with MQTT wildcard matching.
type memoryBroker struct {
	mu   sync.Mutex
	subs map[string][]Handler
}

func newMemoryBroker() *memoryBroker { return &memoryBroker{subs: make(map[string][]Handler)} }

func (b *memoryBroker) Publish(topic, _ string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.mu.Lock()
	var hs []Handler
	for filter, list := range b.subs {
		if matches(filter, topic) {
			hs = append(hs, list...)
		}
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(topic, payload)
	}
	return nil
}

func (b *memoryBroker) Subscribe(topic, _ string, h Handler) error {
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], h)
	b.mu.Unlock()
	return nil
}

func (b *memoryBroker) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	for _, t := range topics {
		delete(b.subs, t)
	}
	b.mu.Unlock()
	return nil
}

func matches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, seg := range f {
		if seg == "#" {
			return true
		}
		if i >= len(t) || (seg != "+" && seg != t[i]) {
			return false
		}
	}
	return len(f) == len(t)
}

type localObserver struct {
	id        string
	pos       model.Position
	fail      bool
	snapshots atomic.Int32
}

func (o *localObserver) ID() string { return o.id }

func (o *localObserver) Snapshot(context.Context) (model.ObserverSnapshot, error) {
	o.snapshots.Add(1)
	return model.ObserverSnapshot{ID: o.id, Position: o.pos, Speed: 42}, nil
}

func (o *localObserver) ExecuteTask(_ context.Context, order model.TaskOrder) (model.Report, error) {
	if o.fail {
		return model.Report{}, errors.New("camera offline")
	}
	return model.Report{Result: "looked at " + order.Description, Heading: 90}, nil
}

func startAgents(t *testing.T, b Transport, obs ...*localObserver) {
	t.Helper()
	for _, o := range obs {
		a, err := NewAgent(b, o, nil)
		require.NoError(t, err)
		require.NoError(t, a.Start(context.Background()))
		t.Cleanup(func() { _ = a.Stop() })
	}
}

func newHub(t *testing.T, b Transport, timeout time.Duration, opts ...Option) *FleetDiscovery {
	t.Helper()
	d, err := NewFleetDiscovery(b, timeout, opts...)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestRemoteObserverRoundTrip(t *testing.T) {
	b := newMemoryBroker()
	startAgents(t, b, &localObserver{id: "cam-1", pos: model.Pos(3, 4)})
	d := newHub(t, b, time.Second)

	obs := d.Observer("cam-1")
	assert.Equal(t, "cam-1", obs.ID())
	rep, err := obs.ExecuteTask(context.Background(), model.TaskOrder{TaskID: "task-1", Description: "double parking"})
	require.NoError(t, err)
	assert.Equal(t, "cam-1", rep.ObserverID)
	assert.Equal(t, "task-1", rep.TaskID)
	assert.Equal(t, "looked at double parking", rep.Result)

	snap, err := obs.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Pos(3, 4), snap.Position)
}

func TestRemoteObserverFailure(t *testing.T) {
	b := newMemoryBroker()
	startAgents(t, b, &localObserver{id: "cam-1", fail: true})
	d := newHub(t, b, time.Second)

	_, err := d.Observer("cam-1").ExecuteTask(context.Background(), model.TaskOrder{TaskID: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camera offline")
}

func TestReportTimeout(t *testing.T) {
	d := newHub(t, newMemoryBroker(), 20*time.Millisecond)
	_, err := d.Observer("ghost").ExecuteTask(context.Background(), model.TaskOrder{TaskID: "t"})
	assert.True(t, errors.Is(err, ErrReportTimeout))
	_, err = d.Observer("ghost").Snapshot(context.Background())
	assert.True(t, errors.Is(err, ErrReportTimeout))
}

func TestExecuteHonoursContext(t *testing.T) {
	d := newHub(t, newMemoryBroker(), time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Observer("ghost").ExecuteTask(ctx, model.TaskOrder{TaskID: "t"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDiscoverBuildsFleet(t *testing.T) {
	b := newMemoryBroker()
	startAgents(t, b,
		&localObserver{id: "c", pos: model.Pos(1, 1)},
		&localObserver{id: "a", pos: model.Pos(2, 2)},
		&localObserver{id: "b", pos: model.Pos(3, 3)},
	)
	bus := eventbus.New()
	defer bus.Close()
	ch := bus.Subscribe()
	d := newHub(t, b, time.Second, WithEventBus(bus))

	snaps, err := d.Discover(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "a", snaps[0].ID)
	assert.Equal(t, "c", snaps[2].ID)

	select {
	case ev := <-ch:
		de, ok := ev.(events.DiscoveryEvent)
		require.True(t, ok)
		assert.Equal(t, 3, de.Responses)
		assert.Equal(t, "mqtt", de.Component)
	case <-time.After(time.Second):
		t.Fatal("no discovery event")
	}

	fleet, err := d.Fleet(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fleet.IDs())
}

func TestTargetedSnapshotOnlyWakesAddressee(t *testing.T) {
	b := newMemoryBroker()
	a := &localObserver{id: "a"}
	other := &localObserver{id: "b"}
	startAgents(t, b, a, other)
	d := newHub(t, b, time.Second)

	_, err := d.Observer("a").Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.snapshots.Load())
	assert.Equal(t, int32(0), other.snapshots.Load())
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "observer/x/task", TaskTopic("x"))
	assert.True(t, matches(ReportWildcard, ReportTopic("x")))
	assert.True(t, matches(ResponseWildcard, ResponseTopic("x")))
	assert.False(t, matches(ReportWildcard, TaskTopic("x")))
}

func TestNewFleetDiscoveryValidation(t *testing.T) {
	_, err := NewFleetDiscovery(nil, time.Second)
	assert.Error(t, err)
	_, err = NewFleetDiscovery(newMemoryBroker(), 0)
	assert.Error(t, err)
	_, err = NewAgent(newMemoryBroker(), nil, nil)
	assert.Error(t, err)
}
