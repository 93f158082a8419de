package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/buildcache"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/gitlib"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

const tracerName = "feanalyzer/history"

// Step names, used in logs, spans and metrics.
const (
	StepCheckout = "checkout"
	StepInstall  = "install"
	StepMeasure  = "measure"
)

// Checkouter checks out a commit into the walker's working copy.
type Checkouter interface {
	Checkout(ctx context.Context, hash gitlib.Hash) error
}

// Installer installs dependencies and fingerprints the dependency manifests.
type Installer interface {
	InstallBlocking(ctx context.Context, handle *repo.Handle, dir string) error
	DependencyChecksum(dir string) (string, error)
}

// Measurer measures the working copy at its current checkout.
type Measurer interface {
	Measure(ctx context.Context, handle *repo.Handle, dir string) (*metric.CommitResult, error)
}

// Recorder receives walk counters. observability.PipelineMetrics implements it.
type Recorder interface {
	CommitMeasured(ctx context.Context)
	SlotFailed(ctx context.Context, step string)
	Reinstalled(ctx context.Context)
}

// Config wires a Walker to its collaborators.
type Config struct {
	Git       Checkouter
	Installer Installer
	Measurer  Measurer

	// StepTimeout bounds each checkout, install and measure step. Zero disables it.
	StepTimeout time.Duration
	// StallGrace is how long a timed-out step may take to return before the
	// walk gives up on it.
	StallGrace time.Duration

	Logger   *slog.Logger
	Recorder Recorder
}

// Walker visits selected commits strictly one at a time: checkout, reinstall
// when the dependency checksum changed, measure, tag with the commit hash.
type Walker struct {
	git       Checkouter
	installer Installer
	measurer  Measurer
	watchdog  *Watchdog
	logger    *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer
}

// NewWalker creates a Walker.
func NewWalker(cfg Config) *Walker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Walker{
		git:       cfg.Git,
		installer: cfg.Installer,
		measurer:  cfg.Measurer,
		watchdog:  NewWatchdog(cfg.StepTimeout, cfg.StallGrace, logger),
		logger:    logger,
		recorder:  recorder,
		tracer:    otel.Tracer(tracerName),
	}
}

// Walk measures the commits chosen by sel, in selection order. commits is
// the newest-first commit list of the repository at localPath.
//
// The returned slice has one slot per selected index; a slot is nil when
// that commit could not be measured. A non-nil error means the walk stopped
// early on a stalled step: the slots measured so far are still returned.
// The run id is taken from ctx, or generated when ctx carries none.
func (w *Walker) Walk(
	ctx context.Context, handle *repo.Handle, localPath string, sel Selection, commits []gitlib.Hash,
) ([]*metric.CommitResult, error) {
	runID, ok := observability.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = observability.ContextWithRunID(ctx, runID)
	}

	logger := w.logger.With("repository", handle.Label)

	var indices []int
	for idx := range sel.Indices(len(commits)) {
		indices = append(indices, idx)
	}

	ctx, span := w.tracer.Start(ctx, "feanalyzer.history.walk",
		trace.WithAttributes(
			attribute.String("history.run_id", runID),
			attribute.String("history.selection", sel.String()),
			attribute.Int("history.commits", len(commits)),
			attribute.Int("history.selected", len(indices)),
		))
	defer span.End()

	logger.InfoContext(ctx, "history walk started",
		"selection", sel.String(), "commits", len(commits), "selected", len(indices))

	start := time.Now()
	guard := buildcache.NewGuard()

	results, err := runSeries(ctx, len(indices), func(ctx context.Context, slot int) (*metric.CommitResult, error) {
		idx := indices[slot]

		return w.visit(ctx, logger, guard, handle, localPath, idx, commits[idx])
	})

	measured := 0

	for _, res := range results {
		if res != nil {
			measured++
		}
	}

	span.SetAttributes(attribute.Int("history.measured", measured))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "walk stopped")
		logger.ErrorContext(ctx, "history walk stopped early", "error", err,
			"measured", measured, "selected", len(indices))

		return results, err
	}

	logger.InfoContext(ctx, "history walk finished",
		"measured", measured, "selected", len(indices),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return results, nil
}

// visit processes one commit. Errors other than stalls and cancellation are
// logged and degrade the slot to nil.
func (w *Walker) visit(
	ctx context.Context, logger *slog.Logger, guard *buildcache.Guard,
	handle *repo.Handle, dir string, idx int, hash gitlib.Hash,
) (*metric.CommitResult, error) {
	ctx, span := w.tracer.Start(ctx, "feanalyzer.history.commit",
		trace.WithAttributes(
			attribute.Int("commit.index", idx),
			attribute.String("commit.hash", hash.String()),
		))
	defer span.End()

	logger = logger.With("index", idx, "hash", hash.String())

	err := w.watchdog.Run(ctx, StepCheckout, func(ctx context.Context) error {
		return w.git.Checkout(ctx, hash)
	})
	if err != nil {
		return nil, w.degrade(ctx, logger, span, StepCheckout, err)
	}

	checksum, checksumErr := w.installer.DependencyChecksum(dir)
	if checksumErr != nil {
		logger.WarnContext(ctx, "dependency checksum unavailable, reinstalling", "error", checksumErr)
	}

	if guard.ShouldReinstall(checksum, checksumErr) {
		err = w.reinstall(ctx, guard, handle, dir)
		if err != nil {
			return nil, w.degrade(ctx, logger, span, StepInstall, err)
		}
	}

	var result *metric.CommitResult

	err = w.watchdog.Run(ctx, StepMeasure, func(ctx context.Context) error {
		var measureErr error

		result, measureErr = w.measurer.Measure(ctx, handle, dir)

		return measureErr
	})
	if err != nil {
		return nil, w.degrade(ctx, logger, span, StepMeasure, err)
	}

	if result == nil {
		return nil, nil
	}

	result.Hash = hash.String()

	w.recorder.CommitMeasured(ctx)
	logger.DebugContext(ctx, "commit measured", "metrics", len(result.Metrics))

	return result, nil
}

// reinstall installs dependencies and records the post-install checksum.
func (w *Walker) reinstall(ctx context.Context, guard *buildcache.Guard, handle *repo.Handle, dir string) error {
	err := w.watchdog.Run(ctx, StepInstall, func(ctx context.Context) error {
		return w.installer.InstallBlocking(ctx, handle, dir)
	})
	if err != nil {
		return err
	}

	w.recorder.Reinstalled(ctx)

	post, err := w.installer.DependencyChecksum(dir)
	if err != nil {
		guard.Forget()

		w.logger.WarnContext(ctx, "post-install checksum unavailable", "error", err)

		return nil
	}

	guard.Installed(post)

	return nil
}

// degrade logs a failed step. It returns err only when the walk must stop.
func (w *Walker) degrade(ctx context.Context, logger *slog.Logger, span trace.Span, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step+" failed")
	w.recorder.SlotFailed(ctx, step)

	if errors.Is(err, ErrStepStalled) || ctx.Err() != nil {
		return err
	}

	logger.WarnContext(ctx, "commit skipped", "step", step, "error", err)

	return nil
}

// runSeries calls step for slots 0..n-1, each only after the previous one
// returned. A step error stops the series; later slots stay nil.
func runSeries(
	ctx context.Context, n int, step func(context.Context, int) (*metric.CommitResult, error),
) ([]*metric.CommitResult, error) {
	results := make([]*metric.CommitResult, n)

	for slot := range n {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return results, fmt.Errorf("walk interrupted at slot %d: %w", slot, ctxErr)
		}

		res, err := step(ctx, slot)
		results[slot] = res

		if err != nil {
			return results, fmt.Errorf("walk stopped at slot %d: %w", slot, err)
		}
	}

	return results, nil
}

type nopRecorder struct{}

func (nopRecorder) CommitMeasured(context.Context)      {}
func (nopRecorder) SlotFailed(context.Context, string) {}
func (nopRecorder) Reinstalled(context.Context)         {}
