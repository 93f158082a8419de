package report_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/gitlib"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/report"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
)

// countingIngester records the date source of every pass.
type countingIngester struct {
	mu      sync.Mutex
	sources []telemetry.DateSource
	fail    bool
}

func (c *countingIngester) Ingest(
	_ context.Context, results []*metric.CommitResult, source telemetry.DateSource,
) telemetry.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sources = append(c.sources, source)

	if c.fail {
		return telemetry.Stats{Failed: len(results)}
	}

	return telemetry.Stats{Sent: len(results)}
}

func (c *countingIngester) passes() []telemetry.DateSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]telemetry.DateSource(nil), c.sources...)
}

type panickingIngester struct{}

func (panickingIngester) Ingest(context.Context, []*metric.CommitResult, telemetry.DateSource) telemetry.Stats {
	panic("store client exploded")
}

type stubDates struct{}

func (stubDates) CommitTime(gitlib.Hash) (time.Time, error) {
	return time.Unix(0, 0), nil
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }

func (failingSink) Report(context.Context, report.Bundle) error {
	return errors.New("disk full")
}

type panickingSink struct{}

func (panickingSink) Name() string { return "panicky" }

func (panickingSink) Report(context.Context, report.Bundle) error {
	panic("boom")
}

type recordingSink struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Report(context.Context, report.Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	return nil
}

type sinkFailures struct {
	mu    sync.Mutex
	sinks []string
}

func (s *sinkFailures) SinkFailed(_ context.Context, sink string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sinks = append(s.sinks, sink)
}

func bundle() report.Bundle {
	return report.Bundle{
		Results: sampleResults(),
		Metrics: metricNames,
		Repo:    repo.NewLocal("shop", "/src"),
		Dates:   stubDates{},
	}
}

func TestDistributor_NoSinksStillIngestsOnce(t *testing.T) {
	t.Parallel()

	ing := &countingIngester{}
	dist := report.NewDistributor(ing, nil, report.DistributorOptions{})

	require.NoError(t, dist.Report(context.Background(), bundle()))

	passes := ing.passes()
	require.Len(t, passes, 1)
	assert.NotNil(t, passes[0])
}

func TestDistributor_TelemetrySinkAddsSecondPass(t *testing.T) {
	t.Parallel()

	ing := &countingIngester{}
	sinks := report.BuildSinks(config.ReportersConfig{Active: []string{"elastic"}}, ing, nil, nil)
	dist := report.NewDistributor(ing, sinks, report.DistributorOptions{})

	assert.Equal(t, []string{config.SinkTelemetry}, dist.Sinks())
	require.NoError(t, dist.Report(context.Background(), bundle()))

	passes := ing.passes()
	require.Len(t, passes, 2)

	withSource := 0

	for _, src := range passes {
		if src != nil {
			withSource++
		}
	}

	// Only the unconditional pass carries repository context.
	assert.Equal(t, 1, withSource)
}

func TestDistributor_NoRepoMeansNoDates(t *testing.T) {
	t.Parallel()

	ing := &countingIngester{}
	b := bundle()
	b.Repo = nil

	require.NoError(t, report.NewDistributor(ing, nil, report.DistributorOptions{}).Report(context.Background(), b))
	assert.Equal(t, []telemetry.DateSource{nil}, ing.passes())
}

func TestDistributor_FailingSinksIsolated(t *testing.T) {
	t.Parallel()

	ing := &countingIngester{}
	good := &recordingSink{}
	failures := &sinkFailures{}

	dist := report.NewDistributor(ing,
		[]report.Sink{failingSink{}, panickingSink{}, good},
		report.DistributorOptions{Recorder: failures})

	err := dist.Report(context.Background(), bundle())
	require.ErrorIs(t, err, report.ErrSinkFailed)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "panic: boom")

	assert.Equal(t, 1, good.calls)
	assert.Len(t, ing.passes(), 1)
	assert.ElementsMatch(t, []string{"broken", "panicky"}, failures.sinks)
}

func TestDistributor_IngestionFailureReported(t *testing.T) {
	t.Parallel()

	ing := &countingIngester{fail: true}
	good := &recordingSink{}

	err := report.NewDistributor(ing, []report.Sink{good}, report.DistributorOptions{}).
		Report(context.Background(), bundle())
	require.ErrorIs(t, err, telemetry.ErrIngestFailed)
	assert.Equal(t, 1, good.calls)
}

func TestDistributor_IngestionPanicIsolated(t *testing.T) {
	t.Parallel()

	good := &recordingSink{}

	err := report.NewDistributor(panickingIngester{}, []report.Sink{good}, report.DistributorOptions{}).
		Report(context.Background(), bundle())
	require.ErrorIs(t, err, report.ErrSinkFailed)
	assert.Contains(t, err.Error(), "telemetry: panic: store client exploded")
	assert.Equal(t, 1, good.calls)
}

func TestBuildSinks_Order(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Reporters
	cfg.Active = []string{"telemetry", "formated-file", "plot", "json", "console"}

	sinks := report.BuildSinks(cfg, &countingIngester{}, &bytes.Buffer{}, nil)

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}

	assert.Equal(t, []string{"console", "json", "formatted-file", "plot", "telemetry"}, names)
}
