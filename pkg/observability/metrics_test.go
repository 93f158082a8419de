package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.PipelineMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	pm, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return pm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumPoints(t *testing.T, m *metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	return sum.DataPoints
}

func TestPipelineMetrics_HistoryCounters(t *testing.T) {
	t.Parallel()

	pm, reader := setupTestMeter(t)
	ctx := context.Background()

	pm.CommitMeasured(ctx)
	pm.CommitMeasured(ctx)
	pm.Reinstalled(ctx)
	pm.SlotFailed(ctx, "checkout")

	rm := collectMetrics(t, reader)

	measured := sumPoints(t, findMetric(rm, "feanalyzer.history.commits.measured.total"))
	require.Len(t, measured, 1)
	assert.Equal(t, int64(2), measured[0].Value)

	reinstalls := sumPoints(t, findMetric(rm, "feanalyzer.history.reinstalls.total"))
	require.Len(t, reinstalls, 1)
	assert.Equal(t, int64(1), reinstalls[0].Value)

	failed := sumPoints(t, findMetric(rm, "feanalyzer.history.slots.failed.total"))
	require.Len(t, failed, 1)

	step, ok := failed[0].Attributes.Value(attribute.Key("step"))
	require.True(t, ok)
	assert.Equal(t, "checkout", step.AsString())
}

func TestPipelineMetrics_DeliveryCounters(t *testing.T) {
	t.Parallel()

	pm, reader := setupTestMeter(t)
	ctx := context.Background()

	pm.DocumentIngested(ctx)
	pm.DocumentFailed(ctx)
	pm.DocumentFailed(ctx)
	pm.SinkFailed(ctx, "json")
	pm.SinkFailed(ctx, "plot")

	rm := collectMetrics(t, reader)

	ingested := sumPoints(t, findMetric(rm, "feanalyzer.telemetry.documents.ingested.total"))
	assert.Equal(t, int64(1), ingested[0].Value)

	docFailed := sumPoints(t, findMetric(rm, "feanalyzer.telemetry.documents.failed.total"))
	assert.Equal(t, int64(2), docFailed[0].Value)

	sinks := sumPoints(t, findMetric(rm, "feanalyzer.report.sinks.failed.total"))
	assert.Len(t, sinks, 2)
}
