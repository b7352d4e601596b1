package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cityguard/app"
	"github.com/kilianp07/cityguard/core/model"
	"github.com/kilianp07/cityguard/infra/logger"
)

var queryFlags struct {
	description string
	location    string
	x, y        int
	lat, lon    float64
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one investigation task and print its outcome as JSON",
	RunE:  runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVarP(&queryFlags.description, "description", "d", "", "what to look for")
	f.StringVar(&queryFlags.location, "location", "", "free text location label")
	f.IntVar(&queryFlags.x, "x", -1, "target column")
	f.IntVar(&queryFlags.y, "y", -1, "target row")
	f.Float64Var(&queryFlags.lat, "lat", 0, "target latitude")
	f.Float64Var(&queryFlags.lon, "lon", 0, "target longitude")
	_ = queryCmd.MarkFlagRequired("description")
	queryCmd.MarkFlagsRequiredTogether("x", "y")
	queryCmd.MarkFlagsRequiredTogether("lat", "lon")
	queryCmd.MarkFlagsMutuallyExclusive("x", "lat")
	rootCmd.AddCommand(queryCmd)
}

func queryTask(cmd *cobra.Command) (model.Task, error) {
	task := model.Task{Description: queryFlags.description, Location: queryFlags.location}
	switch {
	case cmd.Flags().Changed("x"):
		p := model.Pos(queryFlags.x, queryFlags.y)
		task.Target = &p
	case cmd.Flags().Changed("lat"):
		task.Coordinates = &model.LatLon{Lat: queryFlags.lat, Lon: queryFlags.lon}
	default:
		return task, fmt.Errorf("a target is required: --x/--y or --lat/--lon")
	}
	return task, nil
}

func runQuery(cmd *cobra.Command, _ []string) error {
	task, err := queryTask(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	out, err := svc.Query(ctx, task)
	if err != nil {
		return fmt.Errorf("task %s: %w", out.TaskID, err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
