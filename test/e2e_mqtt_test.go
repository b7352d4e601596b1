//go:build integration

package test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/kilianp07/cityguard/app"
	"github.com/kilianp07/cityguard/config"
	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/grid"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/simulator"
	"github.com/kilianp07/cityguard/test/util"
)

// TestQueryOverMQTT discovers a fleet of simulated observers through a real
// broker, runs one query against it and checks the exported metrics.
func TestQueryOverMQTT(t *testing.T) {
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Fatalf("mosquitto: %v", err)
	}
	defer cleanup()

	var obs []*simulator.Observer
	for i, p := range []model.Position{model.Pos(0, 0), model.Pos(19, 0), model.Pos(0, 19), model.Pos(19, 19)} {
		obs = append(obs, simulator.NewObserver(
			[]string{"cam-nw", "cam-ne", "cam-sw", "cam-se"}[i], p, 40, 0, rand.New(rand.NewSource(int64(i+1)))))
	}
	stop, err := util.StartAgents(ctx, broker, obs...)
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	defer stop()

	promAddr, err := util.FreeAddr()
	if err != nil {
		t.Fatalf("free addr: %v", err)
	}
	cfg := config.Default()
	cfg.Fleet.Mode = config.FleetMQTT
	cfg.Fleet.DiscoveryMS = 1500
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "e2e-hub"
	cfg.MQTT.ReportTimeoutSeconds = 5
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Metrics.PrometheusAddr = promAddr

	w, err := grid.NewEmpty(20, 20)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := app.New(ctx, cfg, app.WithWorld(w))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()
	if got := svc.Fleet().Len(); got != len(obs) {
		t.Fatalf("expected %d discovered observers, got %d", len(obs), got)
	}

	qctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	target := model.Pos(10, 10)
	out, err := svc.Query(qctx, model.Task{Description: "water main burst", Target: &target})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !out.State.Terminal() || len(out.Rounds) == 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	reports, err := svc.Reports(qctx, out.TaskID)
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(reports) == 0 {
		t.Fatalf("no reports stored for %s", out.TaskID)
	}

	mctx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	if err := util.WaitForMetric(mctx, "http://"+promAddr+"/metrics", "cityguard_query_outcomes_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}
