// Package commands implements CLI command handlers for feanalyzer.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/version"
)

// NewRootCommand builds the feanalyzer command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(observability.Init)
}

func newRootCommandWithDeps(initObs observabilityInit) *cobra.Command {
	opts := &rootOptions{initObs: initObs}

	rootCmd := &cobra.Command{
		Use:   "feanalyzer",
		Short: "Frontend repository metrics over time",
		Long: `feanalyzer measures a frontend repository with configurable metrics and
reports the results to the console, files, an HTML chart and a telemetry store.

Commands:
  run       Measure the current working copy
  history   Measure sampled commits of the repository history
  indexes   Create one telemetry index per metric
  config    Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./.feanalyzer.yaml or ~/.feanalyzer.yaml)")
	flags.StringVar(&opts.username, "username", "", "Telemetry store username (overrides the config file)")
	flags.StringVar(&opts.password, "password", "", "Telemetry store password (overrides the config file)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newIndexesCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
