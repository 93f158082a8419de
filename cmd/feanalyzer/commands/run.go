package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/gitlib"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/installer"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/plugins"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/report"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

// RunCommand measures the working copy as it is now.
type RunCommand struct {
	opts *rootOptions
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	rc := &RunCommand{opts: opts}

	return &cobra.Command{
		Use:   "run [path]",
		Short: "Measure the current working copy",
		Long: `Install the dependencies of the working copy, record the HEAD commit,
run every configured metric and report the result to the active sinks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := rc.opts.loadConfig()
	if err != nil {
		return err
	}

	a, err := rc.opts.newApp(cfg, observability.ModeRun)
	if err != nil {
		return err
	}
	defer a.close()

	dir, err := filepath.Abs(resolvePath(args))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	runID := uuid.NewString()

	ctx, span := a.tracer.Start(observability.ContextWithRunID(cmd.Context(), runID), "feanalyzer.run",
		trace.WithAttributes(
			attribute.String("run.path", dir),
			attribute.String("run.id", runID),
		))
	defer span.End()

	err = rc.measureAndReport(ctx, a, cmd, dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
	}

	return err
}

func (rc *RunCommand) measureAndReport(ctx context.Context, a *app, cmd *cobra.Command, dir string) error {
	registry, err := plugins.Build(a.cfg.Metrics)
	if err != nil {
		return err
	}

	gitRepo, err := gitlib.OpenRepository(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRepositoryLoad, dir, err)
	}
	defer gitRepo.Free()

	handle := repo.NewLocal(repo.Name(dir), dir)

	npm := installer.New(a.cfg.Install.Command, a.cfg.Install.Manifests, a.logger)

	err = npm.Install(ctx, handle)
	if err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	head, err := gitRepo.Head()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRepositoryLoad, dir, err)
	}

	handle.InstalledGitHash = head.String()

	a.logger.InfoContext(ctx, "measuring working copy",
		"repository", handle.Label, "hash", handle.InstalledGitHash, "metrics", registry.Len())

	result, err := metric.NewSuite(registry, a.logger).Measure(ctx, handle, dir)
	if err != nil {
		return err
	}

	result.Hash = head.String()

	reportErr := a.distributor(cmd.OutOrStdout()).Report(ctx, report.Bundle{
		Results: []*metric.CommitResult{result},
		Metrics: registry.Names(),
		Repo:    handle,
		Dates:   gitRepo,
	})
	if reportErr != nil {
		a.logger.WarnContext(ctx, "report finished with failures", "error", reportErr)
	}

	return nil
}

func resolvePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return "."
}
