package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var onceJSON bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle, publish it and print the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, log, err := bootstrap(ctx)
		if err != nil {
			return err
		}

		comps, err := build(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer comps.Close()

		snap, cycleErr := comps.svc.RunCycle(ctx)
		out := cmd.OutOrStdout()

		if onceJSON && cycleErr == nil {
			return printJSON(out, snap)
		}
		if err := printOutcomes(out, comps.svc.Status().Outcomes); err != nil {
			return err
		}
		if cycleErr != nil {
			return cycleErr
		}
		if err := printSensors(out, comps.svc.Sensors(), comps.svc.Device(cfg.DeviceName)); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Cycle %s: %d records\n", snap.CycleID, snap.Len())
		return err
	},
}

func init() { //nolint:gochecknoinits // flag registration
	onceCmd.Flags().BoolVar(&onceJSON, "json", false, "print the snapshot as JSON")
}
