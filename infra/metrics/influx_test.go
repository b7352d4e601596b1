package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cityguard/core/metrics"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func TestInfluxSink_RecordTaskResults(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	now := time.Now()
	res := coremetrics.TaskResult{
		TaskID:     "task-1",
		ObserverID: "obs-1",
		Success:    true,
		Latency:    1500 * time.Millisecond,
		Time:       now,
	}
	if err := sink.RecordTaskResults([]coremetrics.TaskResult{res}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("observer_task").
		AddTag("task_id", "task-1").
		AddTag("observer_id", "obs-1").
		AddTag("success", "true").
		AddTag("component", "dispatcher").
		AddField("latency_ms", 1500.0).
		AddField("error", "").
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	bodies := rec.all()
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected body: %v", bodies)
	}
}

func TestInfluxSink_RecordRoundAndOutcome(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer func() { _ = sink.Close() }()
	now := time.Now()
	if err := sink.RecordRound(coremetrics.RoundEvent{TaskID: "task-1", Iteration: 1, State: "ACTIVE_DISPATCH", Dispatched: 2, Reports: 2, Decision: "continue", Time: now}); err != nil {
		t.Fatalf("record round: %v", err)
	}
	if err := sink.RecordOutcome(coremetrics.OutcomeEvent{TaskID: "task-1", State: "DONE", Iterations: 1, Duration: time.Second, Time: now}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	round := write.NewPointWithMeasurement("escalation_round").
		AddTag("task_id", "task-1").
		AddTag("state", "ACTIVE_DISPATCH").
		AddTag("component", "controller").
		AddField("iteration", 1).
		AddField("dispatched", 2).
		AddField("reports", 2).
		AddField("decision", "continue").
		SetTime(now)
	outcome := write.NewPointWithMeasurement("query_outcome").
		AddTag("task_id", "task-1").
		AddTag("state", "DONE").
		AddTag("component", "controller").
		AddField("iterations", 1).
		AddField("exhausted", false).
		AddField("duration_ms", 1000.0).
		AddField("error", "").
		SetTime(now)
	bodies := rec.all()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 writes got %d", len(bodies))
	}
	if bodies[0] != strings.TrimSpace(write.PointToLineProtocol(round, time.Nanosecond)) {
		t.Errorf("unexpected round body: %s", bodies[0])
	}
	if bodies[1] != strings.TrimSpace(write.PointToLineProtocol(outcome, time.Nanosecond)) {
		t.Errorf("unexpected outcome body: %s", bodies[1])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
