// Package report distributes measurement results to the configured sinks.
package report

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
)

// ErrSinkFailed wraps a failing sink.
var ErrSinkFailed = errors.New("sink failed")

// Bundle is one report: the results of a run and the repository they belong to.
type Bundle struct {
	// Results has one slot per measured unit; nil slots are tolerated.
	Results []*metric.CommitResult
	// Metrics is the column order for tables.
	Metrics []string
	// Repo is nil when no repository context is available.
	Repo *repo.Handle
	// Dates resolves commit timestamps for Repo. It may be nil.
	Dates telemetry.DateSource
}

// Sink is one report destination.
type Sink interface {
	Name() string
	Report(ctx context.Context, bundle Bundle) error
}

// Ingester is the telemetry ingestion capability used by the distributor.
type Ingester interface {
	Ingest(ctx context.Context, results []*metric.CommitResult, source telemetry.DateSource) telemetry.Stats
}
