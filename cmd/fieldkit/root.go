package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"fieldkit/pkg/config"
	"fieldkit/pkg/field"
	"fieldkit/pkg/fieldcontext"
)

// app carries state shared by every command of one invocation.
type app struct {
	cfgFile      string
	logLevel     string
	workers      int
	printMetrics bool

	cfg      *config.Config
	logger   *log.Logger
	registry *prometheus.Registry

	stderr io.Writer
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fieldkit",
		Short: "Image fields and mean image filters",
		Long: `fieldkit reads 2-D images and stacks of slices into image fields,
smooths them with a box mean filter and writes the result.

Examples:
  fieldkit mean scan.png --radius 2 --output smooth.png
  fieldkit info slices/
  fieldkit run pipeline.yaml
  fieldkit config init fieldkit.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.printMetrics {
				return nil
			}
			return a.writeMetrics(cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "configuration file (defaults apply when empty or missing)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVar(&a.workers, "workers", 0, "goroutines used by filter evaluation (default from config)")
	rootCmd.PersistentFlags().BoolVar(&a.printMetrics, "print-metrics", false, "print collected metrics when the command finishes")

	rootCmd.AddCommand(newMeanCommand(a))
	rootCmd.AddCommand(newInfoCommand(a))
	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	return rootCmd
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Output.LogLevel = a.logLevel
	}
	if flags.Changed("workers") {
		cfg.Processing.Workers = a.workers
	}
	if flags.Changed("print-metrics") {
		cfg.Output.PrintMetrics = a.printMetrics
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", field.ErrInvalidArgument, err)
	}
	a.printMetrics = cfg.Output.PrintMetrics
	a.cfg = cfg

	level, err := log.ParseLevel(cfg.Output.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", field.ErrInvalidArgument, err)
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: "fieldkit",
		Level:  level,
	})
	a.registry = prometheus.NewRegistry()
	return nil
}

// newContext creates a field context wired to the invocation's logger,
// metrics and configuration.
func (a *app) newContext(name string) *fieldcontext.Context {
	return fieldcontext.New(name,
		fieldcontext.WithLogger(a.logger),
		fieldcontext.WithRegisterer(a.registry),
		fieldcontext.WithConfig(a.cfg),
	)
}

func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	return int(field.StatusOf(err))
}

// execute runs the command line and returns the exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stderr: stderr}
	rootCmd := newRootCommand(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if a.logger == nil {
			// flag parsing failed before setup
			return int(field.ErrorArgument)
		}
		return exitCode(err)
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
