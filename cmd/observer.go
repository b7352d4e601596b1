package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/infra/logger"
	"github.com/kilianp07/cityguard/infra/mqtt"
	"github.com/kilianp07/cityguard/simulator"
)

var observerFlags struct {
	id          string
	x, y        int
	speed       float64
	heading     float64
	failureRate float64
}

var observerCmd = &cobra.Command{
	Use:   "observer",
	Short: "Serve a simulated observer over MQTT until interrupted",
	RunE:  runObserver,
}

func init() {
	f := observerCmd.Flags()
	f.StringVar(&observerFlags.id, "id", "", "observer id")
	f.IntVar(&observerFlags.x, "x", 0, "initial column")
	f.IntVar(&observerFlags.y, "y", 0, "initial row")
	f.Float64Var(&observerFlags.speed, "speed", 40, "speed in km/h")
	f.Float64Var(&observerFlags.heading, "heading", 0, "initial heading in degrees")
	f.Float64Var(&observerFlags.failureRate, "failure-rate", 0, "probability for a task to fail")
	_ = observerCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(observerCmd)
}

func runObserver(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	mcfg := cfg.MQTT
	mcfg.ClientID = fmt.Sprintf("%s-%s", mcfg.ClientID, observerFlags.id)
	client, err := mqtt.NewPahoClient(mcfg)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	obs := simulator.NewObserver(observerFlags.id, model.Pos(observerFlags.x, observerFlags.y),
		observerFlags.speed, observerFlags.heading, nil)
	obs.FailureRate = observerFlags.failureRate
	agent, err := mqtt.NewAgent(client, obs, logger.New("observer"))
	if err != nil {
		return err
	}
	return agent.Run(ctx)
}
