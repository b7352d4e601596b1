package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `grid:
  width: 40
  height: 25
  seed: 7
escalation:
  nearby_radius: 4
  fleet_size: 2
  max_iterations: 5
dispatch:
  workers: 8
  task_timeout_seconds: 10
store:
  type: sqlite
  conf:
    dsn: "file:reports.db"
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
logging:
  level: debug
  file: logs/cityguard.log
fleet:
  mode: mqtt
  size: 12
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  use_tls: false
  report_timeout_seconds: 5
selection:
  policy: topk
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"grid.width", cfg.Grid.Width, 40},
		{"grid.height", cfg.Grid.Height, 25},
		{"grid.obstacle_density", cfg.Grid.ObstacleDensity, 0.2},
		{"escalation.nearby_radius", cfg.Escalation.NearbyRadius, 4.0},
		{"escalation.fleet_size", cfg.Escalation.FleetSize, 2},
		{"escalation.max_iterations", cfg.Escalation.MaxIterations, 5},
		{"dispatch.workers", cfg.Dispatch.Workers, 8},
		{"dispatch.task_timeout_seconds", cfg.Dispatch.TaskTimeoutSeconds, 10},
		{"store.type", cfg.Store.Type, "sqlite"},
		{"store.dsn", cfg.Store.Conf["dsn"], "file:reports.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.file", cfg.Logging.File, "logs/cityguard.log"},
		{"fleet.mode", cfg.Fleet.Mode, FleetMQTT},
		{"fleet.size", cfg.Fleet.Size, 12},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"report_timeout_seconds", cfg.MQTT.ReportTimeoutSeconds, 5},
		{"selection.policy", cfg.Selection.Policy, PolicyTopK},
		{"selection.distance_weight", cfg.Selection.DistanceWeight, 0.7},
		{"llm.model", cfg.LLM.Model, "gpt-4o-mini"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Grid.Width != 30 || cfg.Escalation.MaxIterations != 3 || cfg.Escalation.FleetSize != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Store.Type != "memory" || cfg.Fleet.Mode != FleetSimulated || cfg.Fleet.Size != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Dispatch.Workers != 5 || cfg.Escalation.NearbyRadius != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("K_ESCALATION__MAX_ITERATIONS", "9")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Escalation.MaxIterations != 9 {
		t.Fatalf("env override ignored: %d", cfg.Escalation.MaxIterations)
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad_policy.yaml":  "selection:\n  policy: random\n",
		"llm_policy.yaml":  "selection:\n  policy: llm\n",
		"bad_fleet.yaml":   "fleet:\n  mode: carrier-pigeon\n",
		"bad_density.yaml": "grid:\n  obstacle_density: 1.5\n",
		"bad_level.yaml":   "logging:\n  level: loud\n",
		"negative.yaml":    "escalation:\n  max_iterations: -1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "config.toml")); err == nil {
		t.Errorf("expected unsupported format error")
	}
}
