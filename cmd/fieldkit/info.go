package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldkit/pkg/imaging"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <image|directory>...",
		Short: "Print the shape and pixel statistics of an image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zc := a.newContext("info")
			defer zc.Close()

			img, err := readInputs(zc.DefaultRegion().Fieldmodule(), args)
			if err != nil {
				return err
			}
			stats, err := imaging.ComputeStats(img.Buffer())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dimension: %d\n", img.Dimension())
			fmt.Fprintf(out, "Sizes: %v\n", img.Sizes())
			fmt.Fprintf(out, "Components: %d\n", img.NumberOfComponents())
			fmt.Fprintf(out, "Mean: %.6f\n", stats.Mean)
			fmt.Fprintf(out, "StdDev: %.6f\n", stats.StdDev)
			fmt.Fprintf(out, "Min: %.6f\n", stats.Min)
			fmt.Fprintf(out, "Max: %.6f\n", stats.Max)
			return nil
		},
	}
}
