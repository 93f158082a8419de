package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

const tracerName = "feanalyzer/report"

// Recorder receives sink failure counters.
type Recorder interface {
	SinkFailed(ctx context.Context, sink string)
}

// Distributor fans a bundle out to the telemetry store and every active sink.
type Distributor struct {
	ingester Ingester
	sinks    []Sink
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// DistributorOptions configures a Distributor.
type DistributorOptions struct {
	Logger   *slog.Logger
	Recorder Recorder
}

// NewDistributor creates a Distributor. ingester backs the unconditional
// ingestion pass; sinks are the configured destinations.
func NewDistributor(ingester Ingester, sinks []Sink, opts DistributorOptions) *Distributor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Distributor{
		ingester: ingester,
		sinks:    sinks,
		logger:   logger,
		recorder: opts.Recorder,
		tracer:   otel.Tracer(tracerName),
	}
}

// Sinks returns the configured sink names in dispatch order.
func (d *Distributor) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}

	return names
}

// Report runs the unconditional ingestion pass and every sink concurrently and
// waits for all of them. A failing sink never stops the others; the failures
// are logged and returned together.
func (d *Distributor) Report(ctx context.Context, bundle Bundle) error {
	ctx, span := d.tracer.Start(ctx, "feanalyzer.report",
		trace.WithAttributes(
			attribute.Int("report.results", len(bundle.Results)),
			attribute.StringSlice("report.sinks", d.Sinks()),
		))
	defer span.End()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)

	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()

		result = multierror.Append(result, fmt.Errorf("%w: %s: %w", ErrSinkFailed, name, err))
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		err := d.ingestAlways(ctx, bundle)
		if err != nil {
			fail("telemetry", err)
		}
	}()

	for _, sink := range d.sinks {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := d.runSink(ctx, sink, bundle)
			if err != nil {
				fail(sink.Name(), err)
			}
		}()
	}

	wg.Wait()

	err := result.ErrorOrNil()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink failures")
		d.logger.ErrorContext(ctx, "report finished with failures", "error", err)

		return err
	}

	d.logger.InfoContext(ctx, "report finished", "sinks", len(d.sinks))

	return nil
}

// ingestAlways sends every result to the telemetry store with the bundle's
// repository context, whatever sinks are active. A panic in the ingester is
// returned as an error like any sink panic.
func (d *Distributor) ingestAlways(ctx context.Context, bundle Bundle) (err error) {
	if d.ingester == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.logger.ErrorContext(ctx, "ingestion panicked", "error", err)
		}
	}()

	dates := bundle.Dates
	if bundle.Repo == nil {
		dates = nil
	}

	stats := d.ingester.Ingest(ctx, bundle.Results, dates)

	return stats.Err()
}

func (d *Distributor) runSink(ctx context.Context, sink Sink, bundle Bundle) (err error) {
	ctx, span := d.tracer.Start(ctx, "feanalyzer.report.sink",
		trace.WithAttributes(attribute.String("sink", sink.Name())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sink failed")

			if d.recorder != nil {
				d.recorder.SinkFailed(ctx, sink.Name())
			}

			d.logger.ErrorContext(ctx, "sink failed", "sink", sink.Name(), "error", err)
		}
	}()

	return sink.Report(ctx, bundle)
}

// TelemetrySink is the "telemetry" sink: a second ingestion pass without
// repository context, so every document is stamped with the current time.
type TelemetrySink struct {
	ingester Ingester
}

// NewTelemetrySink creates a TelemetrySink.
func NewTelemetrySink(ingester Ingester) *TelemetrySink {
	return &TelemetrySink{ingester: ingester}
}

// Name implements Sink.
func (s *TelemetrySink) Name() string { return config.SinkTelemetry }

// Report implements Sink.
func (s *TelemetrySink) Report(ctx context.Context, bundle Bundle) error {
	return s.ingestIfEnabled(ctx, bundle)
}

func (s *TelemetrySink) ingestIfEnabled(ctx context.Context, bundle Bundle) error {
	return s.ingester.Ingest(ctx, bundle.Results, nil).Err()
}
