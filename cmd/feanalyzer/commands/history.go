package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/gitlib"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/history"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/installer"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric/plugins"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/report"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

// ErrConflictingSelection is returned when --commits is combined with --from/--to.
var ErrConflictingSelection = errors.New("--commits cannot be combined with --from/--to")

// HistoryCommand holds the configuration for the history command.
type HistoryCommand struct {
	opts *rootOptions

	factor    float64
	from      int
	to        int
	commits   []int
	workspace string
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	hc := &HistoryCommand{opts: opts}

	cobraCmd := &cobra.Command{
		Use:   "history [path]",
		Short: "Measure selected commits of the repository history",
		Long: `Copy the repository into a scratch workspace, then check out and measure
the selected commits one at a time, oldest dependency state reused where the
manifests did not change. Index 0 is HEAD.

Selection (first match wins):
  --commits 0,10,250   explicit commit indices
  --from 0 --to 50     an inclusive index range
  --factor 0.5         sampled history (default: history.factor)`,
		Args: cobra.MaximumNArgs(1),
		RunE: hc.run,
	}

	flags := cobraCmd.Flags()
	flags.Float64Var(&hc.factor, "factor", config.DefaultHistoryFactor, "Sampling density; higher samples more commits")
	flags.IntVar(&hc.from, "from", 0, "First commit index of a range")
	flags.IntVar(&hc.to, "to", 0, "Last commit index of a range (default: oldest commit)")
	flags.IntSliceVar(&hc.commits, "commits", nil, "Explicit commit indices (comma-separated)")
	flags.StringVar(&hc.workspace, "workspace", "", "Scratch directory for the walk (overrides history.workspace)")

	return cobraCmd
}

// selection resolves the flags into a commit selection, applying flag
// overrides to cfg.
func (hc *HistoryCommand) selection(cmd *cobra.Command, cfg *config.Config) (history.Selection, error) {
	flags := cmd.Flags()
	ranged := flags.Changed("from") || flags.Changed("to")

	switch {
	case flags.Changed("commits"):
		if ranged {
			return history.Selection{}, ErrConflictingSelection
		}

		return history.List(hc.commits...), nil
	case ranged:
		to := hc.to
		if !flags.Changed("to") {
			to = math.MaxInt
		}

		return history.Range(hc.from, to), nil
	}

	if flags.Changed("factor") {
		cfg.History.Factor = hc.factor
	}

	return history.Sampled(cfg.History.Factor), nil
}

func (hc *HistoryCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := hc.opts.loadConfig()
	if err != nil {
		return err
	}

	sel, err := hc.selection(cmd, cfg)
	if err != nil {
		return err
	}

	if hc.workspace != "" {
		cfg.History.Workspace = hc.workspace
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := hc.opts.newApp(cfg, observability.ModeHistory)
	if err != nil {
		return err
	}
	defer a.close()

	src, err := filepath.Abs(resolvePath(args))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	runID := uuid.NewString()

	ctx, span := a.tracer.Start(observability.ContextWithRunID(cmd.Context(), runID), "feanalyzer.history",
		trace.WithAttributes(
			attribute.String("history.run_id", runID),
			attribute.String("history.source", src),
			attribute.String("history.workspace", cfg.History.Workspace),
		))
	defer span.End()

	err = hc.walkAndReport(ctx, a, cmd.OutOrStdout(), src, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history failed")
	}

	return err
}

func (hc *HistoryCommand) walkAndReport(
	ctx context.Context, a *app, out io.Writer, src string, sel history.Selection,
) error {
	cfg := a.cfg

	registry, err := plugins.Build(cfg.Metrics)
	if err != nil {
		return err
	}

	workspace := cfg.History.Workspace

	a.logger.InfoContext(ctx, "preparing workspace", "source", src, "workspace", workspace)

	err = history.PrepareWorkspace(ctx, src, workspace, history.WorkspaceOptions{
		Exclude:     cfg.History.Exclude,
		Concurrency: cfg.History.CopyConcurrency,
	})
	if err != nil {
		return err
	}

	gitRepo, err := gitlib.OpenRepository(workspace)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRepositoryLoad, workspace, err)
	}
	defer gitRepo.Free()

	commits, err := gitRepo.Commits(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRepositoryLoad, workspace, err)
	}

	handle := repo.NewLocal(repo.Name(src), workspace)

	walker := history.NewWalker(history.Config{
		Git:         gitRepo,
		Installer:   installer.New(cfg.Install.Command, cfg.Install.Manifests, a.logger),
		Measurer:    metric.NewSuite(registry, a.logger),
		StepTimeout: cfg.History.StepTimeout,
		StallGrace:  cfg.History.StallGrace,
		Logger:      a.logger,
		Recorder:    a.metrics,
	})

	results, walkErr := walker.Walk(ctx, handle, workspace, sel, commits)

	// A stalled walk still reports what it measured.
	reportErr := a.distributor(out).Report(ctx, report.Bundle{
		Results: results,
		Metrics: registry.Names(),
		Repo:    handle,
		Dates:   gitRepo,
	})

	if reportErr != nil {
		// Sink and ingestion failures are already counted; they never change the exit status.
		a.logger.WarnContext(ctx, "report finished with failures", "error", reportErr)
	}

	printSummary(out, results, len(commits), walkErr)

	return walkErr
}

func printSummary(out io.Writer, results []*metric.CommitResult, total int, walkErr error) {
	measured := 0

	for _, res := range results {
		if res != nil {
			measured++
		}
	}

	status := color.New(color.FgGreen).Sprint("done")
	if walkErr != nil {
		status = color.New(color.FgRed).Sprint("stopped")
	} else if measured < len(results) {
		status = color.New(color.FgYellow).Sprint("degraded")
	}

	fmt.Fprintf(out, "\nhistory %s: measured %s of %s selected commits (%s in history)\n",
		status, humanize.Comma(int64(measured)), humanize.Comma(int64(len(results))),
		humanize.Comma(int64(total)))
}
