package app

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cityguard/config"
	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/simulator"
)

func cornerObservers() []dispatch.Observer {
	corners := []model.Position{model.Pos(0, 0), model.Pos(19, 0), model.Pos(0, 19), model.Pos(19, 19)}
	out := make([]dispatch.Observer, len(corners))
	for i, p := range corners {
		id := "obs" + string(rune('a'+i))
		out[i] = simulator.NewObserver(id, p, 40, 0, rand.New(rand.NewSource(int64(i+1))))
	}
	return out
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	w, err := grid.NewEmpty(20, 20)
	require.NoError(t, err)
	cfg := config.Default()
	svc, err := New(context.Background(), cfg, append([]Option{WithWorld(w)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestQueryAssignsTaskID(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	target := model.Pos(10, 10)
	out, err := svc.Query(context.Background(), model.Task{Description: "smoke above a roof", Target: &target})
	require.NoError(t, err)
	if !strings.HasPrefix(out.TaskID, "task-") {
		t.Fatalf("unexpected task id %q", out.TaskID)
	}
	assert.True(t, out.State.Terminal())
	assert.NotEmpty(t, out.Rounds)
	if out.State == escalation.StateDone {
		require.NotNil(t, out.Report)
		assert.Equal(t, out.TaskID, out.Report.TaskID)
	}
}

func TestQueriesDoNotShareTargets(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	target := model.Pos(3, 3)
	_, err := svc.Query(context.Background(), model.Task{ID: "task-a", Target: &target})
	require.NoError(t, err)
	if _, ok := svc.World().Target(); ok {
		t.Fatalf("base world must not carry a query target")
	}
	assert.Empty(t, svc.World().Observers())
}

func TestQueryWithoutTarget(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	_, err := svc.Query(context.Background(), model.Task{ID: "task-b"})
	require.ErrorIs(t, err, escalation.ErrNoTarget)
}

func TestSimulatedFleetFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Grid.Width, cfg.Grid.Height = 15, 15
	cfg.Grid.Seed = 42
	cfg.Fleet.Size = 5
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.Equal(t, 5, svc.Fleet().Len())
	snaps := svc.Snapshots(context.Background())
	require.Len(t, snaps, 5)
	assert.Equal(t, "obs0001", snaps[0].ID)
	for _, s := range snaps {
		assert.True(t, svc.World().Passable(s.Position), "observer %s on obstacle", s.ID)
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = "etcd"
	_, err := New(context.Background(), cfg, WithObservers(cornerObservers()...))
	require.Error(t, err)
}

func TestNewTaskIDIsUnique(t *testing.T) {
	a, b := NewTaskID(), NewTaskID()
	assert.NotEqual(t, a, b)
	assert.NotContains(t, strings.TrimPrefix(a, "task-"), "-")
}

func TestReportsAreStoredPerTask(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	target := model.Pos(10, 10)
	out, err := svc.Query(context.Background(), model.Task{ID: "task-r", Target: &target})
	require.NoError(t, err)
	reports, err := svc.Reports(context.Background(), "task-r")
	require.NoError(t, err)
	dispatched := 0
	for _, round := range out.Rounds {
		dispatched += len(round)
	}
	assert.Len(t, reports, dispatched)
	for _, r := range reports {
		assert.Equal(t, "task-r", r.TaskID)
	}
}

func TestHandlerRunsTasks(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json",
		strings.NewReader(`{"id":"task-h","description":"flooded street","target":{"x":10,"y":10}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out escalation.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "task-h", out.TaskID)

	resp2, err := http.Get(srv.URL + "/api/observers")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var snaps []model.ObserverSnapshot
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&snaps))
	assert.Len(t, snaps, 4)
}

// gatedObserver holds every snapshot until the gate is opened.
type gatedObserver struct {
	dispatch.Observer
	gate    <-chan struct{}
	started chan<- struct{}
	once    *sync.Once
}

func (g gatedObserver) Snapshot(ctx context.Context) (model.ObserverSnapshot, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.gate:
	case <-ctx.Done():
		return model.ObserverSnapshot{}, ctx.Err()
	}
	return g.Observer.Snapshot(ctx)
}

func TestQueryRefusesRunningTaskID(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	once := &sync.Once{}
	var obs []dispatch.Observer
	for _, o := range cornerObservers() {
		obs = append(obs, gatedObserver{Observer: o, gate: gate, started: started, once: once})
	}
	svc := newTestService(t, WithObservers(obs...))
	target := model.Pos(10, 10)
	task := model.Task{ID: "task-dup", Target: &target}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Query(context.Background(), task)
		done <- err
	}()
	<-started

	out, err := svc.Query(context.Background(), task)
	require.ErrorIs(t, err, escalation.ErrTaskInProgress)
	assert.Equal(t, "task-dup", out.TaskID)

	close(gate)
	require.NoError(t, <-done)

	// the id is free again once the first query returned
	_, err = svc.Query(context.Background(), task)
	require.NoError(t, err)
}

func TestHandlerRejectsTargetOutsideGrid(t *testing.T) {
	svc := newTestService(t, WithObservers(cornerObservers()...))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json",
		strings.NewReader(`{"id":"task-far","target":{"x":25,"y":3}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = svc.Query(context.Background(), model.Task{ID: "task-far2", Target: &model.Position{X: 3, Y: -1}})
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
}
