package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsMeasured   = "feanalyzer.history.commits.measured.total"
	metricSlotsFailed       = "feanalyzer.history.slots.failed.total"
	metricReinstalls        = "feanalyzer.history.reinstalls.total"
	metricDocumentsIngested = "feanalyzer.telemetry.documents.ingested.total"
	metricDocumentsFailed   = "feanalyzer.telemetry.documents.failed.total"
	metricSinksFailed       = "feanalyzer.report.sinks.failed.total"

	attrStep = "step"
	attrSink = "sink"
)

// PipelineMetrics holds the OTel counters fed by the history walker, the
// telemetry ingester and the report distributor.
type PipelineMetrics struct {
	commitsMeasured   metric.Int64Counter
	slotsFailed       metric.Int64Counter
	reinstalls        metric.Int64Counter
	documentsIngested metric.Int64Counter
	documentsFailed   metric.Int64Counter
	sinksFailed       metric.Int64Counter
}

type counterSpec struct {
	name string
	desc string
	unit string
	dst  *metric.Int64Counter
}

// NewPipelineMetrics creates the counters from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	pm := &PipelineMetrics{}

	specs := []counterSpec{
		{metricCommitsMeasured, "Commits measured successfully", "{commit}", &pm.commitsMeasured},
		{metricSlotsFailed, "Commit slots degraded by step", "{commit}", &pm.slotsFailed},
		{metricReinstalls, "Dependency reinstalls during history walks", "{install}", &pm.reinstalls},
		{metricDocumentsIngested, "Telemetry documents accepted", "{document}", &pm.documentsIngested},
		{metricDocumentsFailed, "Telemetry documents rejected or undeliverable", "{document}", &pm.documentsFailed},
		{metricSinksFailed, "Report sink failures", "{failure}", &pm.sinksFailed},
	}

	for _, spec := range specs {
		counter, err := mt.Int64Counter(spec.name,
			metric.WithDescription(spec.desc),
			metric.WithUnit(spec.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", spec.name, err)
		}

		*spec.dst = counter
	}

	return pm, nil
}

// CommitMeasured counts a commit whose metrics were all collected.
func (pm *PipelineMetrics) CommitMeasured(ctx context.Context) {
	pm.commitsMeasured.Add(ctx, 1)
}

// SlotFailed counts a degraded commit slot, labeled by the failing step.
func (pm *PipelineMetrics) SlotFailed(ctx context.Context, step string) {
	pm.slotsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStep, step)))
}

// Reinstalled counts a dependency reinstall.
func (pm *PipelineMetrics) Reinstalled(ctx context.Context) {
	pm.reinstalls.Add(ctx, 1)
}

// DocumentIngested counts an accepted telemetry document.
func (pm *PipelineMetrics) DocumentIngested(ctx context.Context) {
	pm.documentsIngested.Add(ctx, 1)
}

// DocumentFailed counts a telemetry document that was not stored.
func (pm *PipelineMetrics) DocumentFailed(ctx context.Context) {
	pm.documentsFailed.Add(ctx, 1)
}

// SinkFailed counts a failed report sink.
func (pm *PipelineMetrics) SinkFailed(ctx context.Context, sink string) {
	pm.sinksFailed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSink, sink)))
}
