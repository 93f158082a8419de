package metric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

// Suite measures every registered metric against a working copy.
type Suite struct {
	registry *Registry
	logger   *slog.Logger
}

// NewSuite creates a Suite over the registry.
func NewSuite(registry *Registry, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.Default()
	}

	return &Suite{registry: registry, logger: logger}
}

// Measure runs the metrics one after another. A failing metric yields a result
// with a nil value; only a cancelled context fails the whole measurement.
func (s *Suite) Measure(ctx context.Context, handle *repo.Handle, dir string) (*CommitResult, error) {
	result := &CommitResult{
		Repository: handle.Label,
		Metrics:    make([]Result, 0, s.registry.Len()),
	}

	target := Target{Repo: handle, Dir: dir}

	for _, m := range s.registry.metrics {
		name := m.Info().Name

		value, err := m.Measure(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("measure %q: %w", name, ctx.Err())
			}

			s.logger.WarnContext(ctx, "metric measurement failed",
				slog.String("metric", name),
				slog.String("dir", dir),
				slog.Any("error", fmt.Errorf("%w: %w", ErrMeasurementFailed, err)),
			)

			value = nil
		}

		result.Metrics = append(result.Metrics, Result{Name: name, Value: value})
	}

	return result, nil
}
