package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/motionscript/internal/stabilize"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List stabilization presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRESET\tSPIKE\tONE-EURO\tSLEW\tJERK\tDEADZONE\tHYSTERESIS")
			for _, name := range stabilize.PresetNames() {
				c, err := stabilize.Preset(name)
				if err != nil {
					return err
				}
				marker := ""
				if name == stabilize.DefaultPreset {
					marker = " (default)"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%s\t%s\n", name, marker,
					stage(c.SpikeRejectionEnabled, "%g", c.SpikeThreshold),
					stage(c.OneEuroEnabled, "%g/%g", c.OneEuroMinCutoff, c.OneEuroBeta),
					stage(c.SlewRateEnabled, "%g", c.SlewMaxRate),
					stage(c.JerkLimiterEnabled, "%g", c.JerkMaxJerk),
					stage(c.DeadzoneEnabled, "%g", c.DeadzoneThreshold),
					stage(c.HysteresisEnabled, "%g", c.HysteresisBand),
				)
			}
			return tw.Flush()
		},
	}
}

func stage(on bool, format string, args ...any) string {
	if !on {
		return "-"
	}
	return fmt.Sprintf(format, args...)
}
