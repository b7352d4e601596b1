package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/cityguard/core/factory"
	metrics "github.com/kilianp07/cityguard/core/metrics"
	inframetrics "github.com/kilianp07/cityguard/infra/metrics"
)

// counterValue reads a counter sample from the default gatherer, returning 0
// when the series does not exist yet.
func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

/*
TestMetricsFactory_Builtins verifies the sinks registered by infra/metrics.

	Cases:
	- prometheus builds a PromSink
	- influx without a reachable server falls back to NopSink
	- unknown type returns error
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}})
	if err != nil {
		t.Fatalf("create prometheus: %v", err)
	}
	if _, ok := s.(*inframetrics.PromSink); !ok {
		t.Fatalf("expected PromSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": "http://127.0.0.1:1", "org": "city", "bucket": "guard"},
	}})
	if err != nil {
		t.Fatalf("create influx: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink fallback, got %T", s)
	}

	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

/*
TestNewMetricsSink_Multi validates NewMetricsSink with zero and multiple configs.
Cases:
  - no config -> NopSink
  - prometheus + nop -> MultiSink forwarding outcomes to the PromSink
*/
func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	cfgs := []factory.ModuleConfig{{Type: "prometheus"}, {Type: "nop"}}
	s, err = metrics.NewMetricsSink(cfgs)
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}

	before := counterValue(t, "cityguard_query_outcomes_total", "state", "BUDGET_EXHAUSTED")
	if err := m.RecordOutcome(metrics.OutcomeEvent{TaskID: "task-m", State: "BUDGET_EXHAUSTED", Exhausted: true}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if got := counterValue(t, "cityguard_query_outcomes_total", "state", "BUDGET_EXHAUSTED"); got != before+1 {
		t.Fatalf("outcome counter = %v, want %v", got, before+1)
	}
}
