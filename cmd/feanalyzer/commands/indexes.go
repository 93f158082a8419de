package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/plugins"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
)

func newIndexesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create one telemetry index per configured metric",
		Long: `Create <prefix>-<metric> indexes in the telemetry store with the base
mapping (metric, project, timestamp, hash) merged with each metric's schema.
Existing indexes are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			a, err := opts.newApp(cfg, observability.ModeIndexes)
			if err != nil {
				return err
			}
			defer a.close()

			registry, err := plugins.Build(cfg.Metrics)
			if err != nil {
				return err
			}

			ctx, span := a.tracer.Start(cmd.Context(), "feanalyzer.indexes")
			defer span.End()

			err = telemetry.CreateIndexes(ctx, a.telemetryClient(), cfg.Reporters.Telemetry.IndexPrefix, registry, a.logger)
			if err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d indexes ready\n", registry.Len())

			return nil
		},
	}
}
