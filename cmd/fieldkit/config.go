package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldkit/pkg/config"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fieldkit configuration files",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write a configuration file with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfigFile(args[0]); err != nil {
				return err
			}
			a.logger.Debug("default configuration written", "path", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to: %s\n", args[0])
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteConfig(cmd.OutOrStdout(), a.cfg)
		},
	})
	return configCmd
}
