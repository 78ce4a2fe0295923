package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldkit/pkg/pipeline"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Create, read and write the fields described by a pipeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}

			name := p.Context
			if name == "" {
				name = "pipeline"
			}
			zc := a.newContext(name)
			defer zc.Close()

			runner := pipeline.NewRunner(zc.DefaultRegion(), a.logger)
			if err := runner.Run(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %q completed: %d fields, %d outputs\n",
				name, len(p.Fields), len(p.Outputs))
			return nil
		},
	}
}
