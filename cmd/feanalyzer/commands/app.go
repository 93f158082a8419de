package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/observability"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/report"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/version"
)

// ErrRepositoryLoad indicates a failure to open the git repository.
var ErrRepositoryLoad = errors.New("failed to load repository")

type observabilityInit func(cfg observability.Config) (observability.Providers, error)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	username   string
	password   string
	verbose    bool

	initObs observabilityInit
}

// app is the per-invocation runtime: configuration plus observability.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.PipelineMetrics
	shutdown func(ctx context.Context) error
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	cfg.ApplyCredentials(o.username, o.password)

	return cfg, nil
}

func (o *rootOptions) newApp(cfg *config.Config, mode observability.AppMode) (*app, error) {
	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if o.verbose {
		level = slog.LevelDebug
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.MetricsTextfile = cfg.Observability.MetricsTextfile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON

	providers, err := o.initObs(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   providers.Logger,
		tracer:   providers.Tracer,
		shutdown: providers.Shutdown,
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	if a.tracer == nil {
		a.tracer = nooptrace.NewTracerProvider().Tracer("feanalyzer")
	}

	if a.shutdown == nil {
		a.shutdown = func(context.Context) error { return nil }
	}

	meter := providers.Meter
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("feanalyzer")
	}

	a.metrics, err = observability.NewPipelineMetrics(meter)
	if err != nil {
		return nil, errors.Join(err, a.shutdown(context.Background()))
	}

	return a, nil
}

// close flushes observability. Shutdown failures are logged, not returned.
func (a *app) close() {
	err := a.shutdown(context.Background())
	if err != nil {
		a.logger.Warn("observability shutdown failed", "error", err)
	}
}

func (a *app) telemetryClient() *telemetry.Client {
	return telemetry.NewClient(a.cfg.Reporters.Telemetry)
}

func (a *app) distributor(out io.Writer) *report.Distributor {
	ingester := telemetry.NewIngester(a.telemetryClient(), telemetry.IngesterOptions{
		IndexPrefix:    a.cfg.Reporters.Telemetry.IndexPrefix,
		MaxConcurrency: a.cfg.Reporters.Telemetry.MaxConcurrency,
		Logger:         a.logger,
		Recorder:       a.metrics,
	})

	sinks := report.BuildSinks(a.cfg.Reporters, ingester, out, a.logger)

	return report.NewDistributor(ingester, sinks, report.DistributorOptions{
		Logger:   a.logger,
		Recorder: a.metrics,
	})
}
